package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"licensor/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one published version of the HTTP contract. Extension
// builds in the field pin a version, so old ones are deprecated, not removed.
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active" or "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
}

type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
}

func NewVersionMiddleware(versions ...APIVersion) *VersionMiddleware {
	vm := &VersionMiddleware{supportedVersions: map[string]APIVersion{
		"v1": {Version: "v1", Status: "active"},
	}}
	for _, v := range versions {
		vm.supportedVersions[v.Version] = v
	}
	return vm
}

// VersionHeader stamps responses with the serving version and, for
// deprecated versions, the sunset date.
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)

			if ver, ok := vm.supportedVersions[version]; ok && ver.Status == "deprecated" {
				c.Response().Header().Set("X-API-Deprecated", "true")
				if ver.SunsetDate != nil {
					c.Response().Header().Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
				}
			}
			return next(c)
		}
	}
}

// APIVersionResolver rejects requests for versions this server does not serve.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				return next(c)
			}
			if _, ok := vm.supportedVersions[version]; !ok {
				return c.JSON(http.StatusNotFound, common.CreateErrorResponse("UNSUPPORTED_VERSION", "Unsupported API version", map[string]string{
					"supported_versions": strings.Join(vm.versions(), ", "),
				}))
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// extractVersionFromPath returns "vN" for paths starting with /vN/ or equal to /vN.
func extractVersionFromPath(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return ""
	}
	segment := strings.TrimPrefix(path, "/")
	if i := strings.Index(segment, "/"); i >= 0 {
		segment = segment[:i]
	}
	n, err := strconv.Atoi(segment[1:])
	if err != nil || n <= 0 {
		return ""
	}
	return segment
}

func (vm *VersionMiddleware) versions() []string {
	out := make([]string, 0, len(vm.supportedVersions))
	for v := range vm.supportedVersions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
