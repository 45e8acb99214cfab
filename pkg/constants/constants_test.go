package constants

import "testing"

func TestCLINameMatchesExecutable(t *testing.T) {
	if CLIName != "nyx" {
		t.Errorf("CLIName = %q, want %q", CLIName, "nyx")
	}
}

func TestEnvPrefixIsUppercaseWithTrailingUnderscore(t *testing.T) {
	if EnvPrefix != "NYX_" {
		t.Errorf("EnvPrefix = %q, want %q", EnvPrefix, "NYX_")
	}
}

func TestDefaultConfigurationFileBasenamesCoverYAMLAndJSON(t *testing.T) {
	if len(DefaultConfigurationFileBasenames) == 0 {
		t.Fatal("DefaultConfigurationFileBasenames must not be empty")
	}
	want := map[string]bool{".nyx.yml": false, ".nyx.yaml": false, ".nyx.json": false}
	for _, name := range DefaultConfigurationFileBasenames {
		if _, ok := want[name]; !ok {
			t.Errorf("unexpected basename %q", name)
		}
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("DefaultConfigurationFileBasenames missing %q", name)
		}
	}
}

func TestDefaultStateFileNameIsHiddenYAML(t *testing.T) {
	if DefaultStateFileName != ".nyx-state.yml" {
		t.Errorf("DefaultStateFileName = %q, want %q", DefaultStateFileName, ".nyx-state.yml")
	}
}

func TestDefaultChangelogSectionsNonEmpty(t *testing.T) {
	if len(DefaultChangelogSections) == 0 {
		t.Fatal("DefaultChangelogSections must not be empty")
	}
}
