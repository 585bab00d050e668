package loader

import (
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/table"
)

// ErrUnsupportedFormat reports content that no parser could turn into a
// table after all fallback attempts.
var ErrUnsupportedFormat = errors.New("unsupported format")

// parser is one tabular parse attempt.
type parser interface {
	Name() string
	Parse(text string) (*table.Table, error)
}

// chain tries parsers in order, returning the first success. Parse order is
// decided per resource from the declared/sniffed format.
type chain struct {
	parsers []parser
}

func (c chain) parse(text string) (*table.Table, error) {
	var lastErr error
	for _, p := range c.parsers {
		t, err := p.Parse(text)
		if err == nil {
			return t, nil
		}
		zap.L().Debug("load: parser failed, trying next",
			zap.String("parser", p.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, eris.Wrapf(ErrUnsupportedFormat, "load: all parsers failed: %v", lastErr)
}
