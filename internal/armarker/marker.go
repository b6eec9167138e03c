// Package armarker renders tracking-marker images for subjects and stores them
// as ar-marker assets.
package armarker

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"net/url"
	"strings"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"proceres/internal/blob"
	"proceres/internal/platform/logger"
	"proceres/internal/textfold"
	"proceres/pkg/domain"
)

// Size is the edge length of generated markers in pixels.
const Size = 500

// KeyPrefix is the blob key prefix shared by every generated marker.
const KeyPrefix = "markers/"

// Generator renders marker PNGs into a blob store.
type Generator struct {
	store    blob.Store
	log      *logger.Logger
	fontPath string
}

// Option customises a Generator.
type Option func(*Generator)

// WithFont loads a TrueType face for the label instead of the built-in bitmap font.
func WithFont(path string) Option {
	return func(g *Generator) { g.fontPath = path }
}

// WithLogger sets the generator logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l.With("component", "armarker")
		}
	}
}

// New returns a generator writing into store.
func New(store blob.Store, opts ...Option) *Generator {
	g := &Generator{store: store, log: logger.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Render draws the marker image for name and returns PNG bytes.
func (g *Generator) Render(name string) ([]byte, error) {
	dc := gg.NewContext(Size, Size)
	dc.SetColor(color.White)
	dc.Clear()

	// Thick black frame with a white inner field, the layout pattern trackers expect.
	border := float64(Size) * 0.1
	dc.SetColor(color.Black)
	dc.DrawRectangle(0, 0, Size, Size)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawRectangle(border, border, Size-2*border, Size-2*border)
	dc.Fill()

	if g.fontPath != "" {
		if err := dc.LoadFontFace(g.fontPath, 36); err != nil {
			return nil, fmt.Errorf("load marker font: %w", err)
		}
	}
	dc.SetColor(color.Black)
	dc.DrawStringWrapped(textfold.Title(name), Size/2, Size/2, 0.5, 0.5, Size-4*border, 1.4, gg.AlignCenter)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode marker png: %w", err)
	}
	return buf.Bytes(), nil
}

// Key returns a fresh blob key for a subject marker.
func Key(name string) string {
	return fmt.Sprintf("%s%s-%s.png", KeyPrefix, textfold.Slug(name), uuid.NewString())
}

// KeyFromLocation recovers the blob key from a marker asset location. Local
// locations are "/markers/..." and S3 locations are object URLs ending in the
// escaped key. ok is false for locations that do not name a generated marker.
func KeyFromLocation(location string) (key string, ok bool) {
	path := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		path = u.Path
	}
	i := strings.LastIndex(path, "/"+KeyPrefix)
	if i < 0 {
		return "", false
	}
	key = path[i+1:]
	if !strings.HasSuffix(key, ".png") || len(key) == len(KeyPrefix)+len(".png") {
		return "", false
	}
	return key, true
}

// Generate renders and stores a marker for subjectName and returns the
// unsaved asset describing it.
func (g *Generator) Generate(ctx context.Context, subjectName, ownerID string) (domain.Asset, error) {
	png, err := g.Render(subjectName)
	if err != nil {
		return domain.Asset{}, err
	}
	key := Key(subjectName)
	info, err := g.store.Put(ctx, key, bytes.NewReader(png), blob.PutOptions{
		ContentType: "image/png",
		Metadata:    map[string]string{"subject": textfold.Slug(subjectName)},
	})
	if err != nil {
		return domain.Asset{}, fmt.Errorf("store marker: %w", err)
	}
	size := info.Size
	g.log.Debug("marker stored", "key", key, "bytes", size)
	return domain.Asset{
		Name:      assetName(subjectName),
		Kind:      domain.AssetKindARMarker,
		Location:  info.Location,
		SizeBytes: &size,
		Format:    "PNG",
		OwnerID:   ownerID,
		Public:    true,
		Tags:      []string{"ar-marker", "generated"},
		Metadata:  domain.AssetMetadata{Dimensions: &domain.AssetDimensions{Width: Size, Height: Size}},
	}, nil
}

// Discard removes the stored image behind an asset returned by Generate.
// Assets whose location is not a generated marker are ignored.
func (g *Generator) Discard(ctx context.Context, asset domain.Asset) error {
	key, ok := KeyFromLocation(asset.Location)
	if !ok {
		return nil
	}
	_, err := g.store.Delete(ctx, key)
	return err
}

// List returns the stored markers.
func (g *Generator) List(ctx context.Context) ([]blob.Info, error) {
	return g.store.List(ctx, KeyPrefix)
}

func assetName(subject string) string {
	const prefix = "Marcador AR - "
	r := []rune(subject)
	if limit := 100 - len(prefix); len(r) > limit {
		r = r[:limit]
	}
	return prefix + string(r)
}
