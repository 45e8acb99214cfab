package config

import "github.com/nyxreleaseng/nyx/pkg/constants"

// presets are compiled-in named configuration bundles, selected
// via the top-level `preset` key and merged beneath any explicit/shared
// file but above the built-in defaults. "extended" reproduces the full
// release-type catalog (mainline/maturity/integration/hotfix/feature/
// release/maintenance/internal); "simple" is a narrower variant with only
// mainline and internal, and "extendedGitFlow" is "extended" plus a GitFlow
// "develop" release type.
var presets = map[string]Raw{
	"simple":          simplePreset(),
	"extended":        extendedPreset(),
	"extendedGitFlow": extendedGitFlowPreset(),
}

// LookupPreset returns the named compiled-in preset, or false if unknown.
func LookupPreset(name string) (Raw, bool) {
	p, ok := presets[name]
	return p, ok
}

func conventionalCommitsConvention() Raw {
	return Raw{
		"enabled": []interface{}{"conventionalCommits"},
		"items": Raw{
			"conventionalCommits": Raw{
				"expression": `^(?P<type>\w+)(?:\((?P<scope>[^)]+)\))?(?P<breaking>!)?:\s*(?P<title>.+)$`,
				"bumpExpressions": Raw{
					"major": `^.*!:.*$|^(?s).*BREAKING CHANGE:.*$`,
					"minor": `^feat(?:\(.+\))?:.*$`,
					"patch": `^fix(?:\(.+\))?:.*$`,
				},
			},
		},
	}
}

func githubService() Raw {
	return Raw{
		"github": Raw{
			"type": "GITHUB",
			"options": Raw{
				"AUTHENTICATION_TOKEN": "{{environment.variable(\"GITHUB_TOKEN\")}}",
				"REPOSITORY_NAME":      "{{repositoryName}}",
				"REPOSITORY_OWNER":     "{{repositoryOwner}}",
				"BASE_URI":             "https://api.github.com",
			},
		},
	}
}

func gitlabService() Raw {
	return Raw{
		"gitlab": Raw{
			"type": "GITLAB",
			"options": Raw{
				"AUTHENTICATION_TOKEN": "{{environment.variable(\"GITLAB_TOKEN\")}}",
				"REPOSITORY_NAME":      "{{repositoryName}}",
				"REPOSITORY_OWNER":     "{{repositoryOwner}}",
				"BASE_URI":             "https://gitlab.com/api/v4",
			},
		},
	}
}

// mainline is always-present in every preset: the stable trunk release
// type with no collapsing and no version range constraint.
func mainlineType() Raw {
	return Raw{
		"matchBranches":        `^(main|master)$`,
		"matchWorkspaceStatus": "CLEAN",
		"filterTags":           `^\d+\.\d+\.\d+$`,
		"gitCommit":            "false",
		"gitTag":               "true",
		"gitTagMessage":        "Release {{version}}",
		"gitPush":              "true",
		"publish":              "true",
		"description":          "Mainline releases from {{branch}}.",
	}
}

func maturityType() Raw {
	return Raw{
		"matchBranches":             `^alpha|beta|rc$`,
		"matchWorkspaceStatus":      "CLEAN",
		"filterTags":                `^\d+\.\d+\.\d+-(alpha|beta|rc)\.\d+$`,
		"collapseVersions":          true,
		"collapsedVersionQualifier": "{{branch}}",
		"gitTag":                    "true",
		"gitTagMessage":             "Pre-release {{version}}",
		"gitPush":                   "true",
		"publish":                   "true",
		"description":               "Maturity pre-releases on {{branch}}.",
	}
}

func integrationType() Raw {
	return Raw{
		"matchBranches":        `^develop|integration$`,
		"matchWorkspaceStatus": "ANY",
		"collapseVersions":     true,
		"collapsedVersionQualifier": "integration",
		"gitTag":               "false",
		"gitPush":              "false",
		"publish":              "false",
		"description":          "Internal integration builds, never published.",
	}
}

func hotfixType() Raw {
	return Raw{
		"matchBranches":              `^hotfix/.*$`,
		"matchWorkspaceStatus":       "CLEAN",
		"versionRangeFromBranchName": false,
		"gitTag":                     "true",
		"gitTagMessage":              "Hotfix {{version}}",
		"gitPush":                    "true",
		"publish":                    "true",
		"description":                "Hotfix releases branched from a prior tag.",
	}
}

func featureType() Raw {
	return Raw{
		"matchBranches":        `^feature/.*$`,
		"matchWorkspaceStatus": "ANY",
		"collapseVersions":     true,
		"collapsedVersionQualifier": "{{sanitize(branch)}}",
		"gitTag":      "false",
		"gitPush":     "false",
		"publish":     "false",
		"description": "Feature-branch builds, never tagged or published.",
	}
}

func releaseType() Raw {
	return Raw{
		"matchBranches":              `^rel/.*$`,
		"matchWorkspaceStatus":       "CLEAN",
		"versionRangeFromBranchName": true,
		"gitTag":                     "true",
		"gitTagMessage":              "Release {{version}}",
		"gitPush":                    "true",
		"publish":                    "true",
		"description":                "Release-branch stabilization builds.",
	}
}

func maintenanceType() Raw {
	return Raw{
		"matchBranches":        `^maint/.*$`,
		"matchWorkspaceStatus": "CLEAN",
		"gitTag":               "true",
		"gitTagMessage":        "Maintenance release {{version}}",
		"gitPush":              "true",
		"publish":              "true",
		"description":          "Maintenance-branch patch releases.",
	}
}

func internalType() Raw {
	return Raw{
		"matchBranches":        `.*`,
		"matchWorkspaceStatus": "ANY",
		"gitTag":               "false",
		"gitPush":              "false",
		"publish":              "false",
		"description":          "Catch-all internal build, no side effects.",
	}
}

// changelogBlock builds the `changelog` preset block from this package's
// default file name and section vocabulary (pkg/constants), keyed to the
// same conventional-commit types conventionalCommitsConvention() bumps on.
func changelogBlock() Raw {
	sections := Raw{}
	for _, name := range constants.DefaultChangelogSections {
		switch name {
		case "Features":
			sections[name] = `^feat$`
		case "Fixes":
			sections[name] = `^fix$`
		default:
			sections[name] = "^" + name + "$"
		}
	}
	return Raw{
		"path":     constants.DefaultChangelogFileName,
		"title":    "Changelog",
		"sections": sections,
	}
}

func simplePreset() Raw {
	return Raw{
		"commitMessageConventions": conventionalCommitsConvention(),
		"services":                 githubService(),
		"changelog":                changelogBlock(),
		"releaseTypes": Raw{
			"enabled": []interface{}{"mainline", "internal"},
			"items": Raw{
				"mainline": mainlineType(),
				"internal": internalType(),
			},
			"publicationServices": []interface{}{"github"},
		},
	}
}

func extendedPreset() Raw {
	services := githubService()
	for k, v := range gitlabService() {
		services[k] = v
	}
	return Raw{
		"commitMessageConventions": conventionalCommitsConvention(),
		"services":                 services,
		"changelog":                changelogBlock(),
		"releaseTypes": Raw{
			"enabled": []interface{}{
				"mainline", "maturity", "integration", "hotfix",
				"feature", "release", "maintenance", "internal",
			},
			"items": Raw{
				"mainline":    mainlineType(),
				"maturity":    maturityType(),
				"integration": integrationType(),
				"hotfix":      hotfixType(),
				"feature":     featureType(),
				"release":     releaseType(),
				"maintenance": maintenanceType(),
				"internal":    internalType(),
			},
			"publicationServices": []interface{}{"github", "gitlab"},
		},
	}
}

func extendedGitFlowPreset() Raw {
	base := extendedPreset()
	releaseTypes, _ := base["releaseTypes"].(Raw)
	items, _ := releaseTypes["items"].(Raw)
	items["develop"] = Raw{
		"matchBranches":             `^develop$`,
		"matchWorkspaceStatus":      "ANY",
		"collapseVersions":          true,
		"collapsedVersionQualifier": "develop",
		"gitTag":                    "false",
		"gitPush":                   "false",
		"publish":                   "false",
		"description":               "GitFlow develop integration branch.",
	}
	releaseTypes["enabled"] = []interface{}{
		"mainline", "develop", "maturity", "integration", "hotfix",
		"feature", "release", "maintenance", "internal",
	}
	return base
}
