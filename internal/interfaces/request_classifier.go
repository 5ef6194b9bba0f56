package interfaces

import "go-offline-cache/internal/models"

//go:generate mockgen -package=mock -source=request_classifier.go -destination=mock/request_classifier.go

// RequestClassifier decides whether a request is intercepted and which class it belongs to
type RequestClassifier interface {
	// Classify returns the request class and true, or false when the request
	// must pass through to the network untouched
	Classify(req *models.Request) (models.RequestClass, bool)
}
