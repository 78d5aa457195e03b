package probe

import "fmt"

// Profile describes the technology being hunted. The engine is
// technology-agnostic; only the probes' query construction reads the
// profile.
type Profile struct {
	Name string `yaml:"name"`

	// Keywords matched in job postings and social mentions.
	Keywords []string `yaml:"keywords"`

	// StrongKeywords are explicit product mentions worth calling out
	// in evidence descriptions.
	StrongKeywords []string `yaml:"strong_keywords"`

	// ConfigFilenames are filenames whose presence in a repo is an
	// exact config-file hit.
	ConfigFilenames []string `yaml:"config_filenames"`

	// ConfigKeywords are weaker content markers of a config file.
	ConfigKeywords []string `yaml:"config_keywords"`

	// ActionSlugs identify CI workflow actions (owner/repo form).
	ActionSlugs []string `yaml:"action_slugs"`

	// APIKeyEnvVars are environment variable names referencing the
	// technology's API credentials.
	APIKeyEnvVars []string `yaml:"api_key_env_vars"`

	// SDKPackages are package names whose import or dependency marks
	// SDK usage.
	SDKPackages []string `yaml:"sdk_packages"`
}

// Validate requires at least one searchable field.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile missing name")
	}
	if len(p.Keywords) == 0 && len(p.ConfigFilenames) == 0 && len(p.SDKPackages) == 0 {
		return fmt.Errorf("profile %q has no keywords, config filenames, or sdk packages", p.Name)
	}
	return nil
}

// DefaultProfile is a working example profile for Terraform adoption.
// Operators are expected to supply their own profile file for the
// technology they care about.
func DefaultProfile() Profile {
	return Profile{
		Name:            "terraform",
		Keywords:        []string{"Terraform", "HashiCorp Terraform"},
		StrongKeywords:  []string{"Terraform Cloud", "Terraform Enterprise"},
		ConfigFilenames: []string{"main.tf", ".terraform.lock.hcl"},
		ConfigKeywords:  []string{"required_providers"},
		ActionSlugs:     []string{"hashicorp/setup-terraform"},
		APIKeyEnvVars:   []string{"TF_API_TOKEN", "TF_TOKEN_app_terraform_io"},
		SDKPackages:     []string{"cdktf", "@cdktf/provider-aws"},
	}
}
