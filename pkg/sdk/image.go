package sdk

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	actorsv1 "github.com/kination/actorflow/api/v1"
)

// DefaultImage is used by environments that declare neither an image nor an ImageSpec
const DefaultImage = "ghcr.io/kination/actorflow:latest"

// ImageSpec declares a container image by its contents rather than by a tag.
// The tag is derived from the contents so that the same spec always resolves to the same image.
type ImageSpec struct {
	Name      string
	Registry  string
	BaseImage string
	Packages  []string
	Builder   string
}

// Reference returns the image reference, "[registry/]name:tag"
func (s ImageSpec) Reference() string {
	name := s.Name
	if name == "" {
		name = "actorflow-image"
	}
	ref := name + ":" + s.Tag()
	if s.Registry != "" {
		ref = strings.TrimSuffix(s.Registry, "/") + "/" + ref
	}
	return ref
}

// Tag is the content hash of the build inputs. Package order does not matter.
func (s ImageSpec) Tag() string {
	pkgs := append([]string(nil), s.Packages...)
	sort.Strings(pkgs)

	h := sha256.New()
	h.Write([]byte(s.BaseImage))
	h.Write([]byte{0})
	h.Write([]byte(s.Builder))
	for _, p := range pkgs {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func (s ImageSpec) source() *actorsv1.ImageSource {
	return &actorsv1.ImageSource{
		Name:      s.Name,
		Registry:  s.Registry,
		BaseImage: s.BaseImage,
		Packages:  append([]string(nil), s.Packages...),
		Builder:   s.Builder,
	}
}
