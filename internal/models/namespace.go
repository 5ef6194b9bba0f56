package models

import (
	"fmt"
	"strings"
)

// NamespaceKind identifies one of the three cache partitions of a version
type NamespaceKind string

const (
	NamespaceStatic  NamespaceKind = "static"
	NamespaceDynamic NamespaceKind = "dynamic"
	NamespaceAPI     NamespaceKind = "api"
)

// NamespaceKinds lists the partitions every version owns
var NamespaceKinds = []NamespaceKind{NamespaceStatic, NamespaceDynamic, NamespaceAPI}

// Namespaces names the cache partitions of one application version.
// Names follow the pattern <app>-<version>-<kind>.
type Namespaces struct {
	App     string
	Version string
}

// NewNamespaces creates the namespace set for an application version
func NewNamespaces(app, version string) Namespaces {
	return Namespaces{App: app, Version: version}
}

// Prefix returns the prefix shared by every namespace of the application
func (n Namespaces) Prefix() string {
	return n.App + "-"
}

// Name returns the version-qualified name for a namespace kind
func (n Namespaces) Name(kind NamespaceKind) string {
	return fmt.Sprintf("%s-%s-%s", n.App, n.Version, kind)
}

// Current returns the three namespace names owned by this version
func (n Namespaces) Current() []string {
	names := make([]string, 0, len(NamespaceKinds))
	for _, kind := range NamespaceKinds {
		names = append(names, n.Name(kind))
	}
	return names
}

// IsCurrent reports whether name is one of this version's namespaces
func (n Namespaces) IsCurrent(name string) bool {
	for _, current := range n.Current() {
		if name == current {
			return true
		}
	}
	return false
}

// IsForeign reports whether name belongs to the application but to another version.
// Namespaces of other applications sharing the store are never foreign.
func (n Namespaces) IsForeign(name string) bool {
	return strings.HasPrefix(name, n.Prefix()) && !n.IsCurrent(name)
}
