// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"strings"

	"github.com/skie/litharvest/pkg/types"
)

// classifyLicense maps the permissions block to a license class. The
// markup is inconsistent across journals: the license-type attribute,
// the machine-readable license_ref element, the xlink href, and the
// human-readable license text are all consulted, in that order of
// reliability. Anything unrecognized is Unknown, never a guess.
func classifyLicense(p *permissions) types.License {
	if p == nil {
		return types.LicenseUnknown
	}
	for _, lic := range p.Licenses {
		if t := fromAttr(lic.Type); t != types.LicenseUnknown {
			return t
		}
		for _, ref := range lic.Refs {
			if t := fromURL(ref.Text()); t != types.LicenseUnknown {
				return t
			}
		}
		if t := fromURL(lic.Href); t != types.LicenseUnknown {
			return t
		}
		if t := fromText(mixed{Raw: lic.Body}.Text()); t != types.LicenseUnknown {
			return t
		}
	}
	return types.LicenseUnknown
}

func fromAttr(attr string) types.License {
	switch strings.ToLower(strings.TrimSpace(attr)) {
	case "cc-by":
		return types.LicenseCCBY
	case "cc-by-nc":
		return types.LicenseCCBYNC
	case "cc-by-nd":
		return types.LicenseCCBYND
	case "public-domain", "cc0":
		return types.LicensePublicDomain
	}
	return types.LicenseUnknown
}

func fromURL(url string) types.License {
	url = strings.ToLower(url)
	switch {
	case url == "":
		return types.LicenseUnknown
	case strings.Contains(url, "publicdomain") || strings.Contains(url, "/zero/"):
		return types.LicensePublicDomain
	case strings.Contains(url, "licenses/by-nc"):
		return types.LicenseCCBYNC
	case strings.Contains(url, "licenses/by-nd"):
		return types.LicenseCCBYND
	case strings.Contains(url, "licenses/by"):
		return types.LicenseCCBY
	}
	return types.LicenseUnknown
}

// fromText is the last resort: match the license names as prose. The
// more restrictive variants are checked first so "CC BY-NC" never
// matches as plain attribution.
func fromText(text string) types.License {
	text = strings.ToLower(text)
	switch {
	case text == "":
		return types.LicenseUnknown
	case strings.Contains(text, "public domain"):
		return types.LicensePublicDomain
	case strings.Contains(text, "cc by-nc") || strings.Contains(text, "noncommercial") || strings.Contains(text, "non-commercial"):
		return types.LicenseCCBYNC
	case strings.Contains(text, "cc by-nd") || strings.Contains(text, "no derivatives"):
		return types.LicenseCCBYND
	case strings.Contains(text, "cc by") || strings.Contains(text, "creative commons attribution"):
		return types.LicenseCCBY
	}
	return types.LicenseUnknown
}
