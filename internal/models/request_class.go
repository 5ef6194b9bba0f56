package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RequestClass is the caching class assigned to an intercepted request
type RequestClass string

const (
	RequestClassStatic      RequestClass = "static-asset"
	RequestClassPrayerAPI   RequestClass = "external-prayer-api"
	RequestClassInternalAPI RequestClass = "internal-api"
	RequestClassOther       RequestClass = "other"
)

// AllRequestClasses lists every class in classification order
var AllRequestClasses = []RequestClass{
	RequestClassStatic,
	RequestClassPrayerAPI,
	RequestClassInternalAPI,
	RequestClassOther,
}

// ParseRequestClass converts a string into a RequestClass
func ParseRequestClass(s string) (RequestClass, error) {
	switch RequestClass(s) {
	case RequestClassStatic, RequestClassPrayerAPI, RequestClassInternalAPI, RequestClassOther:
		return RequestClass(s), nil
	default:
		return "", fmt.Errorf("invalid request class '%s': must be one of 'static-asset', 'external-prayer-api', 'internal-api', 'other'", s)
	}
}

// UnmarshalYAML implements custom YAML unmarshaling for RequestClass
func (c *RequestClass) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	parsed, err := ParseRequestClass(str)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NamespaceKind returns the cache namespace kind the class is stored in
func (c RequestClass) NamespaceKind() NamespaceKind {
	switch c {
	case RequestClassStatic:
		return NamespaceStatic
	case RequestClassPrayerAPI, RequestClassInternalAPI:
		return NamespaceAPI
	default:
		return NamespaceDynamic
	}
}
