package tui

import (
	"context"
	"image"
	"image/color"
	"net/url"
	"testing"

	"github.com/charmbracelet/bubbles/key"

	"github.com/smileynet/remoteimage/internal/imagestore"
	"github.com/smileynet/remoteimage/internal/network"
)

// gatedStore returns a store whose fetches block until release is closed.
// Every URL decodes to the same small image.
func gatedStore() (*imagestore.Store, *network.MockClient, chan struct{}) {
	release := make(chan struct{})
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 1, color.RGBA{B: 255, A: 255})
	}
	client := &network.MockClient{GetFunc: func(context.Context, *url.URL) (network.Response, error) {
		<-release
		return network.Response{Data: []byte("img")}, nil
	}}
	store := imagestore.New(client, imagestore.WithDecoder(func([]byte) (image.Image, error) {
		return img, nil
	}))
	return store, client, release
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func collectKeys(bindings []key.Binding) []string {
	var keys []string
	for _, b := range bindings {
		keys = append(keys, b.Keys()...)
	}
	return keys
}

func containsKey(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}
