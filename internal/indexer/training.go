package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// DefaultCategory is the category given to the default training URLs.
const DefaultCategory = "building_management"

// DefaultTrainingURLs are fetched when web training is requested without URLs.
var DefaultTrainingURLs = []string{
	"https://www.becamex.com.vn/en/industry-4-0-innovation-center/",
	"https://www.energy.gov/eere/buildings/smart-buildings",
	"https://www.nist.gov/programs-projects/smart-connected-systems",
	"https://www.schneider-electric.com/en/work/solutions/buildings/",
	"https://www.siemens.com/global/en/products/buildings.html",
}

// URLGroup is a named list of training URLs.
type URLGroup struct {
	Category string
	URLs     []string
}

// Suggestions lists recommended training URLs by category.
var Suggestions = []URLGroup{
	{"Building Management", []string{
		"https://www.becamex.com.vn/en/industry-4-0-innovation-center/",
		"https://www.energy.gov/eere/buildings/smart-buildings",
		"https://www.nist.gov/programs-projects/smart-connected-systems",
	}},
	{"HVAC Systems", []string{
		"https://www.ashrae.org/",
		"https://www.carrier.com/commercial/en/us/products/hvac/",
		"https://www.trane.com/commercial/north-america/us/en.html",
	}},
	{"Smart Building Technology", []string{
		"https://www.schneider-electric.com/en/work/solutions/buildings/",
		"https://www.siemens.com/global/en/products/buildings.html",
		"https://www.honeywell.com/us/en/products/buildings",
	}},
	{"Energy Management", []string{
		"https://www.energy.gov/eere/buildings/energy-management-systems",
		"https://www.eia.gov/energyexplained/use-of-energy/commercial-buildings.php",
	}},
}

// LoadURLSeeds reads a YAML file mapping categories to URL lists. Groups keep
// the file's order.
func LoadURLSeeds(path string) ([]URLGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse seeds: expected a mapping of category to URLs")
	}

	groups := make([]URLGroup, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var urls []string
		if err := root.Content[i+1].Decode(&urls); err != nil {
			return nil, fmt.Errorf("parse seeds: category %q: %w", root.Content[i].Value, err)
		}
		groups = append(groups, URLGroup{Category: root.Content[i].Value, URLs: urls})
	}
	return groups, nil
}

// TrainResult summarises a batch of URL ingestions.
type TrainResult struct {
	SuccessfulURLs []string
	FailedURLs     []string
	Errors         []string
	// TotalChunks is the size of the whole collection afterwards.
	TotalChunks int
}

// TrainFromURLs ingests each URL with the given category. One failing URL
// never stops the batch.
func (p *Pipeline) TrainFromURLs(ctx context.Context, urls []string, category string) *TrainResult {
	result := &TrainResult{}

	for _, u := range urls {
		if ctx.Err() != nil {
			result.FailedURLs = append(result.FailedURLs, u)
			result.Errors = append(result.Errors, fmt.Sprintf("Error with %s: %v", u, ctx.Err()))
			continue
		}
		p.logger.Info("Processing URL", "url", u)
		if _, err := p.IngestURL(ctx, u, storage.Metadata{"category": category}); err != nil {
			p.logger.Warn("Failed to add URL", "url", u, "error", err)
			result.FailedURLs = append(result.FailedURLs, u)
			result.Errors = append(result.Errors, fmt.Sprintf("Error with %s: %v", u, err))
			continue
		}
		result.SuccessfulURLs = append(result.SuccessfulURLs, u)
	}

	n, err := p.collection.Count(context.WithoutCancel(ctx))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Error counting chunks: %v", err))
	}
	result.TotalChunks = n
	return result
}

// LoadTrainingData ingests a JSON training file. Every object-valued top-level
// section becomes one document "Section: <name>" followed by the indented
// section JSON, stored with ids training_<name>_<i>. Other sections are skipped.
func (p *Pipeline) LoadTrainingData(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read training data: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("%s: invalid JSON", path)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return 0, fmt.Errorf("%s: training data must be a JSON object", path)
	}

	total := 0
	var storeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		section := key.String()

		var body bytes.Buffer
		if err := json.Indent(&body, []byte(value.Raw), "", "  "); err != nil {
			storeErr = fmt.Errorf("section %s: %w", section, err)
			return false
		}

		n, err := p.store(ctx, "Section: "+section+"\n\n"+body.String(), "training_"+section, storage.Metadata{
			"source_type": SourceTraining,
			"section":     section,
			"filename":    path,
			"added_date":  p.timestamp(),
			"category":    SourceTraining,
		})
		if err != nil {
			storeErr = fmt.Errorf("section %s: %w", section, err)
			return false
		}
		total += n
		return true
	})
	if storeErr != nil {
		return total, storeErr
	}

	p.logger.Info("Processed training data", "path", path, "chunks", total)
	return total, nil
}
