package interview_archiver

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

// Selectors are the CSS selectors used to locate the parts of the interview page.
type Selectors struct {
	VideoPlayer         string `yaml:"video_player"`
	QuestionList        string `yaml:"question_list"`
	QuestionThumbnail   string `yaml:"question_thumbnail"`
	CandidateName       string `yaml:"candidate_name"`
	TranscriptBox       string `yaml:"transcript_box"`
	TranscriptParagraph string `yaml:"transcript_paragraph"`
}

type Config struct {
	Selectors Selectors `yaml:"selectors"`

	// Interval between evaluations of any polled condition.
	PollInterval time.Duration `yaml:"poll_interval"`
	// How long to wait for the player source to change after activating a question.
	VideoChangeTimeout time.Duration `yaml:"video_change_timeout"`
	// Pause after a video change is observed, for the transcript panel to repopulate.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// How long the trigger shows its "done" label before reverting to idle.
	DoneRevertDelay time.Duration `yaml:"done_revert_delay"`

	// Extension used for video entries when none can be derived from the source URL.
	VideoExtension string `yaml:"video_extension"`
	// Archive base name used when the page has no candidate name.
	FallbackArchiveName string `yaml:"fallback_archive_name"`
	// Template for video entry names, executed with EntryNameArgs.
	EntryNameTemplate string `yaml:"entry_name_template"`
}

var DefaultConfig = Config{
	Selectors: Selectors{
		VideoPlayer:         ".vjs-tech",
		QuestionList:        "aside.menu.question-list",
		QuestionThumbnail:   ".question-title-thumbnail",
		CandidateName:       ".candidate-name-heading",
		TranscriptBox:       ".is-hidden-mobile .react-aria-ListBox",
		TranscriptParagraph: ".hf-paragraph",
	},
	PollInterval:        100 * time.Millisecond,
	VideoChangeTimeout:  3000 * time.Millisecond,
	SettleDelay:         200 * time.Millisecond,
	DoneRevertDelay:     3000 * time.Millisecond,
	VideoExtension:      "mp4",
	FallbackArchiveName: "hireflix-videos",
	EntryNameTemplate:   "{{.Ordinal}}-{{.Label}}.{{.Ext}}",
}

// LoadConfig reads a YAML file over the top of DefaultConfig. Keys missing from the file keep their default value.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, config.Validate()
}

// Validate checks the config for values the harvester cannot work with.
func (c *Config) Validate() error {
	var problems []string
	selectors := map[string]string{
		"video_player":         c.Selectors.VideoPlayer,
		"question_list":        c.Selectors.QuestionList,
		"question_thumbnail":   c.Selectors.QuestionThumbnail,
		"transcript_box":       c.Selectors.TranscriptBox,
		"transcript_paragraph": c.Selectors.TranscriptParagraph,
	}
	for name, value := range selectors {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, fmt.Sprintf("selector %s is empty", name))
		}
	}
	if c.PollInterval <= 0 {
		problems = append(problems, "poll_interval must be positive")
	}
	if c.VideoChangeTimeout <= 0 {
		problems = append(problems, "video_change_timeout must be positive")
	}
	if c.SettleDelay < 0 {
		problems = append(problems, "settle_delay must not be negative")
	}
	if c.DoneRevertDelay < 0 {
		problems = append(problems, "done_revert_delay must not be negative")
	}
	if c.VideoExtension == "" {
		problems = append(problems, "video_extension is empty")
	}
	if c.FallbackArchiveName == "" {
		problems = append(problems, "fallback_archive_name is empty")
	}
	if _, err := template.New("entry_name").Parse(c.EntryNameTemplate); err != nil {
		problems = append(problems, fmt.Sprintf("entry_name_template: %v", err))
	}
	if len(problems) > 0 {
		// Map iteration order is random, keep the message stable
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EntryNameArgs are the values available to Config.EntryNameTemplate.
type EntryNameArgs struct {
	// Zero-padded ordinal.
	Ordinal string
	// Sanitized question label.
	Label string
	Ext   string
}

// EntryName renders the archive entry name for a video.
func (c *Config) EntryName(args EntryNameArgs) (string, error) {
	tmpl, err := template.New("entry_name").Parse(c.EntryNameTemplate)
	if err != nil {
		return "", err
	}
	builder := strings.Builder{}
	if err := tmpl.Execute(&builder, &args); err != nil {
		return "", err
	}
	return builder.String(), nil
}
