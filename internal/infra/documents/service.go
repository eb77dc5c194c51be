package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staybook/internal/app/policies"
	"staybook/internal/domain/shared/faults"
)

const pdfContentType = "application/pdf"

// BlobStore keeps rendered documents and hands out links to them.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Renderer interface {
	Render(in policies.ContractInput) ([]byte, error)
}

// Contracts renders contracts and stores them under contracts/<booking>-<revision>.pdf.
type Contracts struct {
	Renderer Renderer
	Store    BlobStore
	Logger   *slog.Logger
}

func (c Contracts) Generate(ctx context.Context, in policies.ContractInput) (string, error) {
	if c.Renderer == nil || c.Store == nil {
		return "", errors.New("documents: renderer and store are required")
	}
	data, err := c.Renderer.Render(in)
	if err != nil {
		return "", err
	}
	key := contractKey(string(in.Booking.ID), in.Revision)
	if err := c.Store.Put(ctx, key, data, pdfContentType); err != nil {
		return "", faults.Upstream("documents: store contract", err)
	}
	if c.Logger != nil {
		c.Logger.Info("contract stored", "booking_id", in.Booking.ID, "key", key, "bytes", len(data))
	}
	return key, nil
}

func (c Contracts) Discard(ctx context.Context, ref string) error {
	if ref == "" || c.Store == nil {
		return nil
	}
	if err := c.Store.Delete(ctx, ref); err != nil {
		return faults.Upstream("documents: discard contract", err)
	}
	if c.Logger != nil {
		c.Logger.Info("contract discarded", "key", ref)
	}
	return nil
}

func (c Contracts) Link(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return c.Store.URL(ctx, ref)
}

func contractKey(bookingID, revision string) string {
	revision = strings.TrimSpace(revision)
	if revision == "" {
		return fmt.Sprintf("contracts/%s.pdf", bookingID)
	}
	return fmt.Sprintf("contracts/%s-%s.pdf", bookingID, revision)
}

var (
	_ policies.ContractGenerator = Contracts{}
	_ policies.ContractLinker    = Contracts{}
)
