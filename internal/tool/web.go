package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// WebToolManager provides web fetching and search tools
type WebToolManager struct {
	toolSet

	client *http.Client
}

// NewWebToolManager creates a new web tool manager
func NewWebToolManager() *WebToolManager {
	m := &WebToolManager{
		toolSet: newToolSet(),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	m.registerWebTools()
	return m
}

func (m *WebToolManager) registerWebTools() {
	m.RegisterTool("web_fetch", "Fetch a webpage over HTTP(S) and return its main content as markdown. Supply a specific URL.",
		[]message.ToolArgument{
			{Name: "url", Description: "URL of the webpage to fetch and convert to markdown", Required: true, Type: "string"},
		},
		m.handleFetchWeb)

	// Search is a stub kept for interface compatibility with models that
	// expect a search tool to exist
	m.RegisterTool("web_search", "Search the web (stub). Not implemented in this build. Provide URLs or use web_fetch with a concrete link.",
		[]message.ToolArgument{
			{Name: "query", Description: "Search query", Required: true, Type: "string"},
		},
		m.handleWebSearchStub)
}

func (m *WebToolManager) handleFetchWeb(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	urlStr, ok := args.String("url")
	if !ok {
		return message.NewToolResultError("url parameter is required and must be a string"), nil
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("invalid URL format: %v", err)), nil
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return message.NewToolResultError("invalid URL scheme: must be http or https"), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
	}

	// Browser-ish headers to avoid trivial bot blocking
	req.Header.Set("User-Agent", "Mozilla/5.0 (Compatible Web Fetcher Bot)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := m.client.Do(req)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to fetch webpage: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return message.NewToolResultError(fmt.Sprintf("HTTP error %d: %s", resp.StatusCode, resp.Status)), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to parse HTML: %v", err)), nil
	}

	return message.NewToolResultText(m.convertToMarkdown(doc, parsedURL)), nil
}

func (m *WebToolManager) handleWebSearchStub(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	query, _ := args.String("query")
	msg := "web_search is not supported in this build. Provide relevant URLs or documents, or use web_fetch with a specific URL."
	if query != "" {
		msg = fmt.Sprintf("web_search not available. Query: %q. Please supply URLs, or use web_fetch.", query)
	}
	return message.NewToolResultText(msg), nil
}

// convertToMarkdown converts an HTML document to clean markdown
func (m *WebToolManager) convertToMarkdown(doc *goquery.Document, baseURL *url.URL) string {
	var result strings.Builder

	title := doc.Find("title").First().Text()
	if title != "" {
		result.WriteString(fmt.Sprintf("# %s\n\n", strings.TrimSpace(title)))
	}

	metaDesc := doc.Find("meta[name='description']").AttrOr("content", "")
	if metaDesc != "" {
		result.WriteString(fmt.Sprintf("*%s*\n\n", strings.TrimSpace(metaDesc)))
	}

	// Prefer dedicated content containers over the whole body
	contentSelectors := []string{
		"main", "article", "[role='main']", ".main-content",
		".content", ".post-content", ".article-content", "#content",
	}

	var contentFound bool
	for _, selector := range contentSelectors {
		if contentElem := doc.Find(selector).First(); contentElem.Length() > 0 {
			m.processElement(contentElem, &result, baseURL, 0)
			contentFound = true
			break
		}
	}

	if !contentFound {
		doc.Find("nav, header, footer, .navigation, .nav, .sidebar, .menu").Remove()
		m.processElement(doc.Find("body"), &result, baseURL, 0)
	}

	links := m.extractLinks(doc, baseURL)
	if len(links) > 0 {
		result.WriteString("\n## Important Links\n\n")
		for _, link := range links {
			result.WriteString(fmt.Sprintf("- [%s](%s)\n", link.Text, link.URL))
		}
	}

	return result.String()
}

// processElement recursively converts HTML elements to markdown
func (m *WebToolManager) processElement(selection *goquery.Selection, result *strings.Builder, baseURL *url.URL, depth int) {
	selection.Contents().Each(func(i int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				result.WriteString(text)
			}
			return
		}

		tagName := goquery.NodeName(s)
		switch tagName {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(tagName[1] - '0')
			result.WriteString(fmt.Sprintf("\n%s %s\n\n", strings.Repeat("#", level), strings.TrimSpace(s.Text())))

		case "p":
			text := strings.TrimSpace(s.Text())
			if text != "" {
				result.WriteString(text + "\n\n")
			}

		case "br":
			result.WriteString("\n")

		case "strong", "b":
			result.WriteString(fmt.Sprintf("**%s**", strings.TrimSpace(s.Text())))

		case "em", "i":
			result.WriteString(fmt.Sprintf("*%s*", strings.TrimSpace(s.Text())))

		case "code":
			result.WriteString(fmt.Sprintf("`%s`", strings.TrimSpace(s.Text())))

		case "pre":
			result.WriteString(fmt.Sprintf("\n```\n%s\n```\n\n", strings.TrimSpace(s.Text())))

		case "ul", "ol":
			result.WriteString("\n")
			s.Find("li").Each(func(j int, li *goquery.Selection) {
				marker := "-"
				if tagName == "ol" {
					marker = fmt.Sprintf("%d.", j+1)
				}
				result.WriteString(fmt.Sprintf("%s %s\n", marker, strings.TrimSpace(li.Text())))
			})
			result.WriteString("\n")

		case "a":
			href, exists := s.Attr("href")
			text := strings.TrimSpace(s.Text())
			if exists && text != "" {
				if absoluteURL := m.resolveURL(href, baseURL); absoluteURL != "" {
					result.WriteString(fmt.Sprintf("[%s](%s)", text, absoluteURL))
				} else {
					result.WriteString(text)
				}
			} else {
				result.WriteString(text)
			}

		case "img":
			alt := s.AttrOr("alt", "Image")
			src := s.AttrOr("src", "")
			if src != "" {
				result.WriteString(fmt.Sprintf("![%s](%s)", alt, m.resolveURL(src, baseURL)))
			}

		case "blockquote":
			lines := strings.Split(strings.TrimSpace(s.Text()), "\n")
			for _, line := range lines {
				if strings.TrimSpace(line) != "" {
					result.WriteString(fmt.Sprintf("> %s\n", strings.TrimSpace(line)))
				}
			}
			result.WriteString("\n")

		case "div", "span", "section", "article":
			m.processElement(s, result, baseURL, depth+1)

		case "script", "style", "noscript":
			// Skip entirely

		default:
			text := strings.TrimSpace(s.Text())
			if text != "" {
				result.WriteString(text + " ")
			}
		}
	})
}

// resolveURL converts relative URLs to absolute URLs
func (m *WebToolManager) resolveURL(href string, baseURL *url.URL) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if resolvedURL, err := baseURL.Parse(href); err == nil {
		return resolvedURL.String()
	}
	return href
}

// Link is a link extracted from a fetched page
type Link struct {
	Text string
	URL  string
}

// extractLinks collects up to 10 content links from the page
func (m *WebToolManager) extractLinks(doc *goquery.Document, baseURL *url.URL) []Link {
	var links []Link
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if len(links) >= 10 {
			return
		}

		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > 100 {
			return
		}

		// Skip common navigation patterns
		lowerText := strings.ToLower(text)
		if strings.Contains(lowerText, "home") || strings.Contains(lowerText, "about") ||
			strings.Contains(lowerText, "contact") || strings.Contains(lowerText, "menu") {
			return
		}

		absoluteURL := m.resolveURL(href, baseURL)
		if absoluteURL == "" || seen[absoluteURL] {
			return
		}

		seen[absoluteURL] = true
		links = append(links, Link{Text: text, URL: absoluteURL})
	})

	return links
}
