package server

import (
	"context"

	"github.com/vango-dev/livehooks/pkg/protocol"
)

// hideFlash is sent after the flash is cleared.
const hideFlash = `[["hide",{"to":"#flash"}]]`

func (s *Server) handleReorder(ctx context.Context, sess *Session, m *protocol.Message) (map[string]any, error) {
	ids := m.Strings("ids")
	if err := s.config.Store.SaveOrder(ctx, ids); err != nil {
		return nil, err
	}
	s.logger.Info("list reordered", "session_id", sess.ID(), "ids", ids)
	return map[string]any{"ids": ids}, nil
}

func (s *Server) handleClearFlash(_ context.Context, sess *Session, m *protocol.Message) (map[string]any, error) {
	key := m.String("key")
	if key == "" {
		key = "info"
	}
	cleared := sess.ClearFlash(key)
	if cleared {
		if err := sess.Send(protocol.NewJS(hideFlash, "")); err != nil {
			return nil, err
		}
	}
	return map[string]any{"key": key, "cleared": cleared}, nil
}
