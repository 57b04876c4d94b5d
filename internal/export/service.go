package export

import (
	"context"
	"fmt"
)

// Service renders boards to PDF.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// BoardPDF renders the board template and prints it through Chrome.
func (s *Service) BoardPDF(ctx context.Context, board Board) ([]byte, error) {
	html, err := renderBoardHTML(board)
	if err != nil {
		return nil, fmt.Errorf("render board html: %w", err)
	}
	return renderPDF(ctx, html)
}
