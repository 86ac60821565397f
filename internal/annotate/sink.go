package annotate

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/gate/internal/models"
)

// Annotation output modes accepted by configuration and the --annotations flag.
const (
	ModeGitHub = "github"
	ModeText   = "text"
	ModeOff    = "off"
)

// Sink emits annotations to an output channel.
type Sink interface {
	Emit(ann models.Annotation) error
}

// NewSink builds the sink for the given mode writing to w.
func NewSink(mode string, w io.Writer) (Sink, error) {
	switch mode {
	case ModeGitHub:
		return &GitHubSink{W: w}, nil
	case ModeText:
		return &TextSink{W: w}, nil
	case ModeOff:
		return NopSink{}, nil
	default:
		return nil, fmt.Errorf("unknown annotation mode %q (want github, text, or off)", mode)
	}
}

// ValidMode reports whether mode names a supported annotation sink.
func ValidMode(mode string) bool {
	return mode == ModeGitHub || mode == ModeText || mode == ModeOff
}

// GitHubSink writes workflow commands understood by GitHub Actions:
//
//	::error file=src/lib.rs,line=14::message
//
// One line per annotation. The message is stored pre-escaped, so it is
// written verbatim; properties are escaped here.
type GitHubSink struct {
	W io.Writer
}

func (s *GitHubSink) Emit(ann models.Annotation) error {
	var props []string
	if ann.File != "" {
		props = append(props, "file="+EscapeProperty(ann.File))
	}
	if ann.Line > 0 {
		props = append(props, fmt.Sprintf("line=%d", ann.Line))
	}

	cmd := "::" + string(ann.Severity)
	if len(props) > 0 {
		cmd += " " + strings.Join(props, ",")
	}
	_, err := fmt.Fprintf(s.W, "%s::%s\n", cmd, ann.Message)
	return err
}

// TextSink writes annotations for humans: severity and location on one line,
// the unescaped message indented below it.
type TextSink struct {
	W io.Writer
}

func (s *TextSink) Emit(ann models.Annotation) error {
	loc := ann.File
	if loc != "" && ann.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, ann.Line)
	}

	header := strings.ToUpper(string(ann.Severity))
	if loc != "" {
		header += " " + loc
	}
	if _, err := fmt.Fprintf(s.W, "%s\n", header); err != nil {
		return err
	}
	for _, line := range strings.Split(UnescapeMessage(ann.Message), "\n") {
		if _, err := fmt.Fprintf(s.W, "  %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

// NopSink discards annotations.
type NopSink struct{}

func (NopSink) Emit(models.Annotation) error { return nil }
