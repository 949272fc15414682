// Package models defines data structures shared by the audit pipeline.
package models

import "fmt"

// FetchKind classifies the outcome of a single page fetch.
type FetchKind int

const (
	FetchOK FetchKind = iota
	FetchHTTPError
	FetchNetworkError
)

func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchHTTPError:
		return "http_error"
	case FetchNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// FetchStatus is the classified outcome of a fetch. Code is set for
// FetchHTTPError, Message for FetchNetworkError.
type FetchStatus struct {
	Kind    FetchKind
	Code    int
	Message string
}

// OK reports whether the fetch produced a usable body.
func (s FetchStatus) OK() bool {
	return s.Kind == FetchOK
}

// PageFetchResult is the outcome of fetching one URL. RawHTML is only
// populated when the status is FetchOK.
type PageFetchResult struct {
	URL      string
	FinalURL string
	Status   FetchStatus
	RawHTML  []byte
}

// LinkRecord is one navigational anchor found on a page.
type LinkRecord struct {
	Text        string `json:"text"`
	RawHref     string `json:"raw_href"`
	ResolvedURL string `json:"resolved_url"`
}

// ExtractedPage is the visible text and anchors of a fetched page.
type ExtractedPage struct {
	SourceURL   string       `json:"source_url"`
	VisibleText string       `json:"visible_text"`
	Links       []LinkRecord `json:"links"`
}

// LinkClass tells the crawler whether a link may enter the frontier.
type LinkClass int

const (
	External LinkClass = iota
	SameDomain
)

func (c LinkClass) String() string {
	if c == SameDomain {
		return "same_domain"
	}
	return "external"
}

func (s FetchStatus) String() string {
	switch s.Kind {
	case FetchOK:
		return "ok"
	case FetchHTTPError:
		return fmt.Sprintf("http status %d", s.Code)
	case FetchNetworkError:
		if s.Message == "" {
			return "network error"
		}
		return "network error: " + s.Message
	default:
		return s.Kind.String()
	}
}
