// Package logging configures the process-wide apex/log handler.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Setup installs a text or json handler writing to w at the given level.
// Format "none" discards every entry.
func Setup(w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handler, err := NewHandler(w, format)
	if err != nil {
		return err
	}

	log.SetHandler(handler)
	log.SetLevel(lvl)
	return nil
}

func NewHandler(w io.Writer, format string) (log.Handler, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return text.New(w), nil
	case "json":
		return json.New(w), nil
	case "none":
		return discard.New(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
