package live

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

// Page is a server-rendered page fetched over HTTP.
type Page struct {
	URL string
	Doc *dom.Document
	// Jar holds the cookies the server set, including the CSRF cookie
	// the socket handshake needs.
	Jar http.CookieJar
}

// Fetch loads and parses the page at pageURL.
func Fetch(ctx context.Context, pageURL string) (*Page, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.New("E060").Wrap(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New("E060").Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("E060").WithDetail(fmt.Sprintf("GET %s: %s", pageURL, resp.Status))
	}

	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Page{URL: resp.Request.URL.String(), Doc: doc, Jar: jar}, nil
}
