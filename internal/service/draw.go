package service

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/joeblew999/geoview/internal/draw"
	"github.com/joeblew999/geoview/internal/metrics"
)

// DrawService holds the drawing toolbar state and forwards changes to the
// page's drawing engine.
type DrawService struct {
	mu    sync.RWMutex
	mode  draw.Mode
	style draw.Style
	emit  func(DrawCommand)
}

// NewDrawService starts in static mode with the default style. emit may be nil.
func NewDrawService(emit func(DrawCommand)) *DrawService {
	if emit == nil {
		emit = func(DrawCommand) {}
	}
	return &DrawService{mode: draw.ModeStatic, style: draw.DefaultStyle(), emit: emit}
}

// State returns the current mode and style.
func (s *DrawService) State() DrawState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DrawState{Mode: s.mode, Modes: slices.Clone(draw.Modes), Style: s.style}
}

// SetMode selects a drawing mode.
func (s *DrawService) SetMode(name string) (draw.Mode, error) {
	m, err := draw.ParseMode(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.emit(DrawCommand{Op: DrawOpSetMode, Mode: m})
	return m, nil
}

// Clear removes every drawn shape on the page.
func (s *DrawService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(DrawCommand{Op: DrawOpClear})
}

// SetStyle changes the style of shapes drawn from now on.
func (s *DrawService) SetStyle(st draw.Style) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = st
	cp := st
	s.emit(DrawCommand{Op: DrawOpSetStyle, Style: &cp})
	return nil
}

// Replay returns the commands that bring a fresh page in line.
func (s *DrawService) Replay() []DrawCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.style
	return []DrawCommand{
		{Op: DrawOpSetStyle, Style: &st},
		{Op: DrawOpSetMode, Mode: s.mode},
	}
}

// Export filters a drawing snapshot for download.
func (s *DrawService) Export(snapshot []byte) ([]byte, int, error) {
	out, n, err := draw.Export(snapshot)
	if err != nil {
		return nil, 0, err
	}
	metrics.DrawExports.Inc()
	slog.Debug("drawing exported", "features", n)
	return out, n, nil
}
