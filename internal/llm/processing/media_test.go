package processing

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImageURL_DataURI(t *testing.T) {
	img, err := ProcessImageURL(context.Background(), http.DefaultClient, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "iVBORw0KGgo=", img.Data)

	_, err = ProcessImageURL(context.Background(), http.DefaultClient, "data:image/png,raw")
	assert.Error(t, err)

	_, err = ProcessImageURL(context.Background(), http.DefaultClient, "data:image/png;base64")
	assert.Error(t, err)
}

func TestProcessImageURL_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	img, err := ProcessImageURL(context.Background(), srv.Client(), srv.URL+"/cat.gif")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", img.MediaType)
	assert.Equal(t, "R0lGODlh", img.Data)

	_, err = ProcessImageURL(context.Background(), srv.Client(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestProcessImageURL_RemoteTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		size := MaxImageBytes
		if r.URL.Path == "/huge.png" {
			size++
		}
		_, _ = w.Write(bytes.Repeat([]byte{0}, size))
	}))
	defer srv.Close()

	img, err := ProcessImageURL(context.Background(), srv.Client(), srv.URL+"/exact.png")
	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)

	_, err = ProcessImageURL(context.Background(), srv.Client(), srv.URL+"/huge.png")
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
