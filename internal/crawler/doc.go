// Package crawler fetches wiki pages and exposes them as navigable trees.
//
// # Components
//
//   - Fetcher: performs the HTTP GET for one source address and returns the
//     complete page body, refusing bodies over its size limit
//   - Document / Node: a narrow view over golang.org/x/net/html trees that
//     offers only what extraction needs: find descendants matching a
//     predicate, enumerate direct children, read text and attributes
//   - NewHTTPClient: builds the HTTP client, optionally routed through a
//     SOCKS5 or HTTP proxy
//
// # Usage
//
//	client, err := crawler.NewHTTPClient("", 30*time.Second)
//	fetcher := crawler.NewFetcher(client)
//	page, err := fetcher.Fetch(ctx, "https://valorant.fandom.com/wiki/Jett/Quotes")
//	doc, err := crawler.Parse(bytes.NewReader(page.Raw))
//	items := doc.Root().FindAll(crawler.Tag("li"))
//
// Fetching is strictly one page at a time. There is no retry and no
// politeness delay; callers abort on the first failure.
package crawler
