package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	"github.com/reoring/dynaskema/dsl"
	"github.com/reoring/dynaskema/registry"
)

const widget = `{"title":"Widget","properties":{"id":{"type":"integer"},"label":{"type":"string"}},"required":["id"]}`

func TestRegistry_RegisterGetValidate(t *testing.T) {
	r := registry.New(builder.Options{})
	m, err := r.Register([]byte(widget))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, ok := r.Get("Widget"); !ok || got != m {
		t.Fatalf("get: %v %v", got, ok)
	}
	if _, err := r.Register([]byte("title: Gadget\nproperties: {}\n")); err != nil {
		t.Fatalf("register yaml: %v", err)
	}
	if diff := cmp.Diff([]string{"Gadget", "Widget"}, r.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	rec, err := r.Validate(ctx, "Widget", []byte(`{"id":3,"label":"x"}`), dynaskema.ParseOpt{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id, _ := rec.Int("id"); id != 3 {
		t.Fatalf("id: %d", id)
	}
	if _, err := r.Validate(ctx, "Widget", []byte(`{"label":"x"}`), dynaskema.ParseOpt{}); err == nil {
		t.Fatalf("missing id must fail")
	}
	if _, err := r.Validate(ctx, "Nope", []byte(`{}`), dynaskema.ParseOpt{}); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegistry_ReplaceAndErrors(t *testing.T) {
	r := registry.New(builder.Options{Base: dsl.StrictBase})
	if _, err := r.Register([]byte(widget)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register([]byte(`{"title":"Widget","properties":{"id":{"type":"string"}},"required":["id"]}`)); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := r.Validate(ctx, "Widget", []byte(`{"id":"s"}`), dynaskema.ParseOpt{}); err != nil {
		t.Fatalf("replacement not in effect: %v", err)
	}
	if _, err := r.Validate(ctx, "Widget", []byte(`{"id":"s","label":"gone"}`), dynaskema.ParseOpt{}); err == nil {
		t.Fatalf("base must make registered models strict")
	}
	if _, err := r.Register([]byte(`{"properties":{"a":{"$ref":"#/$defs/X"}}}`)); !errors.Is(err, builder.ErrUnresolvedReference) {
		t.Fatalf("want unresolved reference, got %v", err)
	}
	if len(r.Names()) != 1 {
		t.Fatalf("failed registration must not store a model: %v", r.Names())
	}
}

func TestRegistry_ConcurrentRegisterAndValidate(t *testing.T) {
	r := registry.New(builder.Options{})
	if _, err := r.Register([]byte(widget)); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			doc := fmt.Sprintf(`{"title":"M%d","properties":{"v":{"type":"integer"}}}`, i)
			if _, err := r.Register([]byte(doc)); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.Validate(ctx, "Widget", []byte(`{"id":1}`), dynaskema.ParseOpt{}); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use: %v", err)
	}
	if len(r.Names()) != 9 {
		t.Fatalf("names: %v", r.Names())
	}
}
