package fidelis

import (
	"context"
	"fmt"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"golang.org/x/exp/slog"
)

// Transactions returns every transaction row in r, fetching page 1 and then
// pages 2..N in order, where N is the page count page 1 reports. Any page
// failing fails the whole listing.
func (c *Client) Transactions(ctx context.Context, r models.DateRange) ([]models.Record, error) {
	first, err := c.TransactionsPage(ctx, r, 1)
	if err != nil {
		return nil, err
	}

	total := first.PageCount
	if total > c.maxPages {
		return nil, c.report(unknownResponse(opTransactionsPage.Name, "", "",
			fmt.Sprintf("page count %d exceeds limit of %d", total, c.maxPages)))
	}

	rows := append([]models.Record{}, first.Rows...)
	for page := 2; page <= total; page++ {
		p, err := c.TransactionsPage(ctx, r, page)
		if err != nil {
			return nil, fmt.Errorf("page %d of %d: %w", page, total, err)
		}
		rows = append(rows, p.Rows...)
	}

	c.logger.Debug("fetched transactions",
		slog.Int("pages", max(total, 1)),
		slog.Int("rows", len(rows)))
	return rows, nil
}
