package intent

import (
	"context"
	"strings"

	"github.com/kailas-cloud/tourguide/internal/domain"
)

// scriptedCompleter answers by prompt kind: the classification prompt, the filter
// extraction prompt, or the booking extraction prompt.
type scriptedCompleter struct {
	label      string
	labelErr   error
	filters    string
	filtersErr error
	booking    string
	bookingErr error
	params     []domain.GenerationParams
}

func (m *scriptedCompleter) Complete(
	_ context.Context, messages []domain.ChatMessage, params domain.GenerationParams,
) (string, error) {
	m.params = append(m.params, params)
	content := messages[len(messages)-1].Content
	switch {
	case strings.Contains(content, "phân tích ý định"):
		return m.label, m.labelErr
	case strings.Contains(content, "trích xuất thông tin tìm kiếm"):
		return m.filters, m.filtersErr
	case strings.Contains(content, "trích xuất thông tin đặt tour"):
		return m.booking, m.bookingErr
	}
	return "", nil
}
