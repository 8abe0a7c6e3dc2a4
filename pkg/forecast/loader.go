package forecast

import (
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
)

// Load reads a forecast document from source, which is either a local file
// path or an http(s) URL. A remote fetch retries through pester the same
// way the worker's request path does, since a forecast feed is one more
// unreliable network call that shouldn't fail a whole solve on one blip.
func Load(source string) (Document, []byte, error) {
	var raw []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		raw, err = fetchURL(source)
	} else {
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return Document{}, nil, errors.Wrap(err, "loading forecast")
	}

	doc, err := Parse(raw)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, raw, nil
}

func fetchURL(url string) ([]byte, error) {
	client := pester.New()
	client.MaxRetries = 3
	client.Backoff = pester.ExponentialBackoff

	resp, err := client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching forecast from %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching forecast from %s: got status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
