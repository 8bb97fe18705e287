package external

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// Abstract is one PubMed article abstract.
type Abstract struct {
	PMID  string
	Title string
	Text  string
}

// KnowledgeExtractor turns raw abstracts into structured drug knowledge. The
// LLM-backed implementation lives in pkg/narrative; extraction failure or a
// disabled model yields nil knowledge, never an aborted fetch.
type KnowledgeExtractor interface {
	Extract(ctx context.Context, gene, variant string, abstracts []Abstract) (*domain.LiteratureKnowledge, error)
	Enabled() bool
}

// PubMedAPIClient fetches article abstracts via NCBI E-utilities.
type PubMedAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPubMedClient creates a new PubMed E-utilities client.
func NewPubMedClient(cfg domain.SourceConfig) *PubMedAPIClient {
	return &PubMedAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type pubMedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubMedFetchResponse struct {
	XMLName  xml.Name `xml:"PubmedArticleSet"`
	Articles []struct {
		MedlineCitation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Text []string `xml:"AbstractText"`
				} `xml:"Abstract"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

// FetchAbstracts searches PubMed for the gene+variant pair and pulls the
// matching abstracts.
func (p *PubMedAPIClient) FetchAbstracts(ctx context.Context, gene, variant string) ([]Abstract, error) {
	term := fmt.Sprintf(`"%s"[Title/Abstract] AND "%s"[Title/Abstract]`, strings.ToUpper(gene), variant)
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {"10"},
		"sort":    {"relevance"},
	}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}
	searchURL := fmt.Sprintf("%s/esearch.fcgi?%s", p.baseURL, params.Encode())

	var search pubMedSearchResponse
	if err := getJSON(ctx, p.httpClient, p.limiter, searchURL, &search); err != nil {
		return nil, fmt.Errorf("PubMed search failed: %w", err)
	}
	if len(search.ESearchResult.IDList) == 0 {
		return nil, nil
	}

	fetchParams := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(search.ESearchResult.IDList, ",")},
		"retmode": {"xml"},
	}
	if p.apiKey != "" {
		fetchParams.Set("api_key", p.apiKey)
	}
	fetchURL := fmt.Sprintf("%s/efetch.fcgi?%s", p.baseURL, fetchParams.Encode())

	var fetch pubMedFetchResponse
	if err := getXML(ctx, p.httpClient, p.limiter, fetchURL, &fetch); err != nil {
		return nil, fmt.Errorf("PubMed fetch failed: %w", err)
	}

	abstracts := make([]Abstract, 0, len(fetch.Articles))
	for _, article := range fetch.Articles {
		mc := article.MedlineCitation
		abstracts = append(abstracts, Abstract{
			PMID:  mc.PMID,
			Title: mc.Article.Title,
			Text:  strings.Join(mc.Article.Abstract.Text, " "),
		})
	}
	return abstracts, nil
}

// LiteratureService combines the PubMed client with the knowledge extractor
// to implement LiteratureClient.
type LiteratureService struct {
	pubmed    *PubMedAPIClient
	extractor KnowledgeExtractor
	logger    *logrus.Logger
}

// NewLiteratureService creates the literature evidence source.
func NewLiteratureService(pubmed *PubMedAPIClient, extractor KnowledgeExtractor, logger *logrus.Logger) *LiteratureService {
	return &LiteratureService{pubmed: pubmed, extractor: extractor, logger: logger}
}

// FetchKnowledge pulls abstracts and runs extraction. Nil knowledge is a
// valid outcome: nothing published, or no extractor configured.
func (l *LiteratureService) FetchKnowledge(ctx context.Context, gene, variant string) (*domain.LiteratureKnowledge, error) {
	if l.extractor == nil || !l.extractor.Enabled() {
		return nil, nil
	}
	abstracts, err := l.pubmed.FetchAbstracts(ctx, gene, variant)
	if err != nil {
		return nil, err
	}
	if len(abstracts) == 0 {
		return nil, nil
	}
	knowledge, err := l.extractor.Extract(ctx, gene, variant, abstracts)
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"gene":    gene,
			"variant": variant,
			"error":   err.Error(),
		}).Warn("Literature extraction failed")
		return nil, nil
	}
	return knowledge, nil
}
