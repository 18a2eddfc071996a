package live

import (
	"net/url"
	"strings"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// CSRFMetaSelector finds the token the server rendered into the page.
const CSRFMetaSelector = "meta[name='csrf-token']"

// CSRFToken returns the content of the page's csrf-token meta tag.
func CSRFToken(doc *dom.Document) (string, error) {
	meta := doc.QuerySelector(CSRFMetaSelector)
	if meta == nil {
		return "", errors.New("E061").WithDetail(`no <meta name="csrf-token"> in page`)
	}
	token := strings.TrimSpace(meta.AttrOr("content", ""))
	if token == "" {
		return "", errors.New("E061").WithDetail("csrf-token meta tag has no content")
	}
	return token, nil
}

// SocketURL builds the websocket URL for a page at pageURL.
func SocketURL(pageURL, path string, params map[string]string) (*url.URL, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.New("E060").Wrap(err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, errors.New("E060").WithDetail("unsupported scheme " + u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("E060").WithDetail("page URL has no host")
	}
	if !strings.HasPrefix(path, "/") {
		return nil, errors.New("E121").WithDetail("path " + path + " must start with /")
	}

	u.Path = strings.TrimRight(path, "/") + "/websocket"
	u.RawPath = ""
	u.Fragment = ""
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set(protocol.ParamVersion, protocol.Version)
	u.RawQuery = q.Encode()
	return u, nil
}
