package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/pkg/utils"
)

// courseDocument is what gets indexed for one course. Searchable text is
// accent-folded; Title keeps the original name for display.
type courseDocument struct {
	Key         string `json:"key"`
	CourseID    string `json:"course_id"`
	NRC         string `json:"nrc"`
	Period      string `json:"period"`
	Title       string `json:"title"`
	IDs         string `json:"ids"`
	Name        string `json:"name"`
	Faculty     string `json:"faculty"`
	Areas       string `json:"areas"`
	Units       string `json:"units"`
	Assessments string `json:"assessments"`
}

var textFields = []string{"ids", "name", "faculty", "areas", "units", "assessments"}

func newCourseDocument(r *models.CourseRecord) courseDocument {
	var units, assessments []string
	for _, u := range r.Units {
		units = append(units, u.Title, u.Achievement)
	}
	for _, a := range r.Assessments {
		assessments = append(assessments, a.Name, a.Code)
	}
	return courseDocument{
		Key:         r.Key(),
		CourseID:    r.Metadata.CourseID,
		NRC:         r.Metadata.NRC,
		Period:      r.Metadata.Period,
		Title:       r.Name,
		IDs:         utils.FoldAccents(r.Metadata.CourseID + " " + r.Metadata.NRC),
		Name:        utils.FoldAccents(r.Name),
		Faculty:     utils.FoldAccents(strings.Join(r.Faculty, " ")),
		Areas:       utils.FoldAccents(strings.Join(r.Areas, " ")),
		Units:       utils.FoldAccents(strings.Join(units, " ")),
		Assessments: utils.FoldAccents(strings.Join(assessments, " ")),
	}
}

// BleveIndex implements CourseIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func courseMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	for _, f := range textFields {
		fm := bleve.NewTextFieldMapping()
		// Standard analyzer: lower-case and tokenize, no stemming of Spanish words.
		fm.Analyzer = standard.Name
		doc.AddFieldMappingsAt(f, fm)
	}
	for _, f := range []string{"key", "course_id", "nrc", "period"} {
		fm := bleve.NewKeywordFieldMapping()
		fm.Analyzer = keywordanalyzer.Name
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(f, fm)
	}
	title := bleve.NewTextFieldMapping()
	title.Index = false
	title.IncludeInAll = false
	doc.AddFieldMappingsAt("title", title)

	im.AddDocumentMapping("course", doc)
	im.DefaultType = "course"
	im.DefaultMapping = doc
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reopened as is; remove the directory after changing the mapping.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, courseMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex returns an index that lives only in memory.
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(courseMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the course under its key.
func (b *BleveIndex) Index(_ context.Context, record *models.CourseRecord) error {
	return b.index.Index(record.Key(), newCourseDocument(record))
}

// Search matches the query against the course text fields. When an exact search
// finds nothing and fuzzy matching was not requested, it is retried fuzzily and
// the response is marked AutoFuzzy.
func (b *BleveIndex) Search(_ context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	folded := utils.FoldAccents(q.Query)

	res, err := b.run(folded, q, q.FuzzyEnabled)
	if err != nil {
		return nil, err
	}
	autoFuzzy := false
	if res.Total == 0 && !q.FuzzyEnabled {
		if res, err = b.run(folded, q, true); err != nil {
			return nil, err
		}
		autoFuzzy = true
	}

	out := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(res.Hits)),
		Total:     int(res.Total),
		Query:     q.Query,
		AutoFuzzy: autoFuzzy,
	}
	for i, hit := range res.Hits {
		out.Results = append(out.Results, &models.SearchResult{
			Key:      hit.ID,
			CourseID: fieldString(hit.Fields, "course_id"),
			NRC:      fieldString(hit.Fields, "nrc"),
			Period:   fieldString(hit.Fields, "period"),
			Name:     fieldString(hit.Fields, "title"),
			Score:    hit.Score,
			Rank:     i + 1,
		})
	}
	out.QueryTime = time.Since(start).Milliseconds()
	return out, nil
}

func (b *BleveIndex) run(folded string, q *models.SearchQuery, fuzzy bool) (*bleve.SearchResult, error) {
	var text blevequery.Query
	if fuzzy {
		text = buildFuzzyQuery(folded)
	} else {
		text = buildMatchQuery(folded)
	}
	if q.Period != "" {
		pq := bleve.NewTermQuery(q.Period)
		pq.SetField("period")
		text = bleve.NewConjunctionQuery(text, pq)
	}
	req := bleve.NewSearchRequest(text)
	req.Size = q.Limit
	req.Fields = []string{"course_id", "nrc", "period", "title"}
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	return res, nil
}

// buildMatchQuery ORs a match query per text field, boosting name and identifiers.
func buildMatchQuery(query string) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(textFields))
	for _, f := range textFields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(f)
		switch f {
		case "name":
			mq.SetBoost(nameBoost)
		case "ids":
			mq.SetBoost(idsBoost)
		}
		queries = append(queries, mq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// buildFuzzyQuery ORs a fuzzy query per term over all text fields.
func buildFuzzyQuery(query string) blevequery.Query {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return bleve.NewMatchQuery(query)
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func fieldString(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// Delete removes a course from the index.
func (b *BleveIndex) Delete(_ context.Context, key string) error {
	return b.index.Delete(key)
}

// DocCount returns the total number of courses in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
