package ui

import (
	"context"
	"fmt"

	"github.com/five82/ghostkeeper/internal/fastfollow"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

type promptRequest struct {
	title   string
	body    string
	choices []string
	cancel  int
	reply   chan int
}

// Prompter answers fast-follow questions through the UI. Each question
// becomes a modal; the asking cycle blocks until it is answered or its
// context ends.
type Prompter struct {
	catalog  *game.Catalog
	requests chan promptRequest
}

var _ fastfollow.Prompter = (*Prompter)(nil)

// NewPrompter creates a Prompter with no pending questions.
func NewPrompter(c *game.Catalog) *Prompter {
	if c == nil {
		c = game.DefaultCatalog()
	}
	return &Prompter{catalog: c, requests: make(chan promptRequest)}
}

// ConfirmApply implements fastfollow.Prompter.
func (p *Prompter) ConfirmApply(ctx context.Context, ch fastfollow.Change) bool {
	i, ok := p.ask(ctx, promptRequest{
		title:   "New scoreboard result",
		body:    fmt.Sprintf("%s was uploaded. Make it your scoreboard best?", describeGhost(p.catalog, ch.Record)),
		choices: []string{"Apply", "Skip"},
		cancel:  1,
	})
	return ok && i == 0
}

// OfferDownload implements fastfollow.Prompter.
func (p *Prompter) OfferDownload(ctx context.Context, ch fastfollow.Change, current *ghost.Record) fastfollow.DownloadAnswer {
	body := fmt.Sprintf("Download the scoreboard's best ghost for %s?", describeCondition(p.catalog, ch.Condition))
	if current != nil {
		body += fmt.Sprintf("\nIt replaces %s.", describeGhost(p.catalog, current))
	}
	i, ok := p.ask(ctx, promptRequest{
		title:   "Race the best",
		body:    body,
		choices: []string{"Yes", "No", "Never ask again"},
		cancel:  1,
	})
	if !ok {
		return fastfollow.DownloadNo
	}
	switch i {
	case 0:
		return fastfollow.DownloadYes
	case 2:
		return fastfollow.DownloadNever
	default:
		return fastfollow.DownloadNo
	}
}

func (p *Prompter) ask(ctx context.Context, req promptRequest) (int, bool) {
	req.reply = make(chan int, 1)
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return -1, false
	}
	select {
	case i := <-req.reply:
		return i, true
	case <-ctx.Done():
		return -1, false
	}
}
