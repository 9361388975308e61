package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	CardsFile = "cards.json"
	SetsFile  = "sets.json"
)

// Source provides the raw catalog documents. A missing document must be
// reported with an error matching fs.ErrNotExist.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads catalog documents from a local directory.
type DirSource string

func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(string(d), name))
}

// pokemontcg.io v2 document shapes
type rawCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Series string `json:"series"`
	} `json:"set"`
	Images Images `json:"images"`
}

type rawSet struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Series string `json:"series"`
}

// Load reads cards and sets from src and builds the catalog. The sets document
// is optional; the cards document is not.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	start := time.Now()

	var (
		rawCards []rawCard
		rawSets  []rawSet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := decode(gctx, src, CardsFile, &rawCards); err != nil {
			return fmt.Errorf("failed to load %s: %w", CardsFile, err)
		}
		return nil
	})
	g.Go(func() error {
		err := decode(gctx, src, SetsFile, &rawSets)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Sets document missing, deriving sets from cards",
				slog.String("type", "sys"),
				slog.String("file", SetsFile))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", SetsFile, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(rawCards))
	for _, rc := range rawCards {
		cards = append(cards, Card{
			ID:      rc.ID,
			Name:    rc.Name,
			SetID:   rc.Set.ID,
			SetName: rc.Set.Name,
			Rarity:  rc.Rarity,
			Images:  rc.Images,
		})
	}

	sets := make([]Set, 0, len(rawSets))
	for _, rs := range rawSets {
		sets = append(sets, Set{ID: rs.ID, Name: rs.Name, Series: rs.Series})
	}

	c := New(cards, sets)
	slog.Info("Catalog loaded",
		slog.String("type", "sys"),
		slog.Duration("took", time.Since(start)))
	return c, nil
}

func decode(ctx context.Context, src Source, name string, v any) error {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	return json.NewDecoder(rc).Decode(v)
}
