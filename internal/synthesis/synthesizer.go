// Package synthesis classifies queries and retrieved chunks into building topics
// and assembles a templated answer. Apart from sentence extraction it does not
// summarise: each topic contributes a fixed advisory paragraph.
package synthesis

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
)

// NoInformation is returned when nothing was retrieved.
const NoInformation = "No specific information found in the knowledge base. Try uploading more documents or adding web content."

const (
	minSentenceRunes   = 20
	topicSentences     = 3
	webSentences       = 2
	webSources         = 2
	webInformationHead = "**Latest Web Information:**"
)

// IsWebContent reports whether a chunk was fetched from the web.
func IsWebContent(r retrieval.Result) bool {
	return r.Metadata.String("source_type") == "web_content" || r.Metadata.String("source_url") != ""
}

// Synthesize builds the answer text for query from retrieved chunks: web
// excerpts first, then sentences from chunks in the query's topic, then that
// topic's advisory.
func Synthesize(query string, results []retrieval.Result) string {
	if len(results) == 0 {
		return NoInformation
	}

	var web []retrieval.Result
	buckets := make(map[Topic][]string)
	for _, r := range results {
		if IsWebContent(r) {
			web = append(web, r)
		}
		topic := BucketContent(r.Content)
		buckets[topic] = append(buckets[topic], r.Content)
	}

	var parts []string
	if info := webExcerpts(web, query); info != "" {
		parts = append(parts, webInformationHead, info)
	}

	topic := Classify(query)
	s := sections[topic]
	if info := relevantSentences(buckets[topic], query, topicSentences); info != "" {
		parts = append(parts, s.label+" "+info)
	}
	parts = append(parts, s.advisory)

	return strings.Join(parts, "\n")
}

type scoredSentence struct {
	score    float64
	sentence string
}

// scoreSentences splits content on '.' and scores each sentence longer than
// 20 runes by the share of query words it contains. Sentences with no shared
// word are dropped; the rest are ordered by score, ties in text order.
func scoreSentences(content string, queryWords map[string]struct{}) []scoredSentence {
	if len(queryWords) == 0 {
		return nil
	}
	var out []scoredSentence
	for _, sentence := range strings.Split(content, ".") {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) <= minSentenceRunes {
			continue
		}
		matches := 0
		for w := range wordSet(sentence) {
			if _, ok := queryWords[w]; ok {
				matches++
			}
		}
		if matches > 0 {
			out = append(out, scoredSentence{
				score:    float64(matches) / float64(len(queryWords)),
				sentence: sentence,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// relevantSentences takes the best limit sentences from each chunk, removes
// duplicates and joins the first limit of them.
func relevantSentences(contents []string, query string, limit int) string {
	queryWords := wordSet(query)

	var picked []string
	seen := make(map[string]bool)
	for _, content := range contents {
		scored := scoreSentences(content, queryWords)
		if len(scored) > limit {
			scored = scored[:limit]
		}
		for _, s := range scored {
			if !seen[s.sentence] {
				seen[s.sentence] = true
				picked = append(picked, s.sentence)
			}
		}
	}
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return strings.Join(picked, " ")
}

type webSource struct {
	url       string
	domain    string
	sentences []string
	score     float64
}

// webExcerpts picks the two best sentences from each web chunk and keeps the
// two chunks with the highest combined score.
func webExcerpts(results []retrieval.Result, query string) string {
	queryWords := wordSet(query)

	var sources []webSource
	for _, r := range results {
		scored := scoreSentences(r.Content, queryWords)
		if len(scored) == 0 {
			continue
		}
		if len(scored) > webSentences {
			scored = scored[:webSentences]
		}
		src := webSource{
			url:    valueOr(r.Metadata.String("source_url"), "Unknown URL"),
			domain: valueOr(r.Metadata.String("domain"), "Unknown domain"),
		}
		for _, s := range scored {
			src.sentences = append(src.sentences, s.sentence)
			src.score += s.score
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return ""
	}

	sort.SliceStable(sources, func(i, j int) bool { return sources[i].score > sources[j].score })
	if len(sources) > webSources {
		sources = sources[:webSources]
	}

	var lines []string
	for _, src := range sources {
		lines = append(lines, fmt.Sprintf("**%s:**", strings.ReplaceAll(src.domain, "www.", "")))
		for _, s := range src.sentences {
			if !strings.HasSuffix(s, ".") {
				s += "."
			}
			lines = append(lines, "   • "+s)
		}
		lines = append(lines, "   Source: "+src.url, "")
	}
	return strings.Join(lines, "\n")
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
