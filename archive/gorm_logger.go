package archive

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// gormLogAdapter routes gorm's internal logging through the compiler's
// structured logger instead of gorm's own stdlib-log writer.
type gormLogAdapter struct {
	logger *log.Logger
}

func newGormLogger(logger *log.Logger) *gormLogAdapter {
	return &gormLogAdapter{logger: logger}
}

func (g *gormLogAdapter) Printf(format string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Info(fmt.Sprintf(format, args...))
}
