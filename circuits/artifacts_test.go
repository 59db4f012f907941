package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	dummyPath       = "dummy.key"
	dummyKeyContent = []byte("dummy content")
)

func testDummyKeyServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, dummyPath, time.Now(), bytes.NewReader(dummyKeyContent))
	}))
}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "blindbid-artifacts-test")
	if err != nil {
		panic(err)
	}
	BaseDir = dir
	code := m.Run()
	if err := os.RemoveAll(dir); err != nil {
		panic(err)
	}
	os.Exit(code)
}

func TestLoadKey(t *testing.T) {
	c := qt.New(t)
	server := testDummyKeyServer()
	defer server.Close()
	expectedHash := sha256.Sum256(dummyKeyContent)
	remoteURL, err := url.JoinPath(server.URL, dummyPath)
	c.Assert(err, qt.IsNil)
	dummyKey := &Artifact{
		RemoteURL: remoteURL,
		Hash:      expectedHash[:],
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// not cached: downloaded
	c.Assert(dummyKey.Load(ctx), qt.IsNil)
	c.Assert([]byte(dummyKey.Content), qt.DeepEquals, dummyKeyContent)
	// cached
	dummyKey.Content = nil
	dummyKey.RemoteURL = ""
	c.Assert(dummyKey.Load(ctx), qt.IsNil)
	c.Assert([]byte(dummyKey.Content), qt.DeepEquals, dummyKeyContent)
	// wrong hash
	dummyKey.Content = nil
	dummyKey.Hash = []byte("wrong hash")
	dummyKey.RemoteURL = remoteURL
	c.Assert(dummyKey.Load(ctx), qt.IsNotNil)
}

func TestStoreAndLoadAll(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ccs, err := Store([]byte("circuit definition"))
	c.Assert(err, qt.IsNil)
	vk, err := Store([]byte("verifying key"))
	c.Assert(err, qt.IsNil)
	_, err = Store(nil)
	c.Assert(err, qt.IsNotNil)

	artifacts := NewCircuitArtifacts(
		&Artifact{Hash: ccs.Hash},
		nil,
		&Artifact{Hash: vk.Hash},
	)
	c.Assert(artifacts.LoadAll(ctx), qt.IsNil)
	c.Assert(string(artifacts.CircuitDefinition()), qt.Equals, "circuit definition")
	c.Assert(artifacts.ProvingKey(), qt.IsNil)
	c.Assert(string(artifacts.VerifyingKey()), qt.Equals, "verifying key")

	missing := sha256.Sum256([]byte("missing"))
	artifacts = NewCircuitArtifacts(nil, &Artifact{Hash: missing[:]}, nil)
	c.Assert(artifacts.LoadAll(ctx), qt.IsNotNil)
}

func TestDownloadFailures(t *testing.T) {
	c := qt.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	hash := sha256.Sum256([]byte("never served"))
	a := &Artifact{RemoteURL: server.URL + "/missing", Hash: hash[:]}
	c.Assert(a.Load(context.Background()), qt.ErrorMatches, ".*http status 404")

	// a failed download leaves nothing in the cache
	content, err := load(hash[:])
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.IsNil)
	entries, err := os.ReadDir(BaseDir)
	c.Assert(err, qt.IsNil)
	for _, e := range entries {
		c.Assert(e.Name(), qt.Not(qt.Matches), "download-.*")
	}
}
