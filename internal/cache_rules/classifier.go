package cache_rules

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// Classifier assigns intercepted requests to a request class
type Classifier struct {
	logger           *zap.Logger
	appOrigin        *url.URL
	prayerOrigin     *url.URL
	apiPrefix        string
	staticExtensions map[string]struct{}
}

// Ensure Classifier implements the RequestClassifier interface
var _ interfaces.RequestClassifier = (*Classifier)(nil)

// NewClassifier creates a new Classifier. Extensions are matched without the
// leading dot and case-insensitively.
func NewClassifier(logger *zap.Logger, appOrigin, prayerOrigin *url.URL, apiPrefix string, staticExtensions []string) *Classifier {
	extensions := make(map[string]struct{}, len(staticExtensions))
	for _, ext := range staticExtensions {
		extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &Classifier{
		logger:           logger,
		appOrigin:        appOrigin,
		prayerOrigin:     prayerOrigin,
		apiPrefix:        apiPrefix,
		staticExtensions: extensions,
	}
}

// Classify implements RequestClassifier interface. The first matching rule wins.
func (c *Classifier) Classify(req *models.Request) (models.RequestClass, bool) {
	if req == nil || req.URL == nil || req.Method != http.MethodGet {
		return "", false
	}

	isApp := utils.SameOrigin(req.URL, c.appOrigin)
	isPrayer := utils.SameOrigin(req.URL, c.prayerOrigin)
	if !isApp && !isPrayer {
		return "", false
	}

	if c.isStaticAsset(req.URL.Path) {
		return models.RequestClassStatic, true
	}
	if c.prayerOrigin != nil && strings.EqualFold(req.URL.Hostname(), c.prayerOrigin.Hostname()) {
		return models.RequestClassPrayerAPI, true
	}
	if c.apiPrefix != "" && strings.HasPrefix(req.URL.Path, c.apiPrefix) {
		return models.RequestClassInternalAPI, true
	}
	return models.RequestClassOther, true
}

func (c *Classifier) isStaticAsset(p string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return false
	}
	_, ok := c.staticExtensions[ext]
	return ok
}
