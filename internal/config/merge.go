package config

// MergeSCM applies the provider-level defaults to a material's configuration.
// Values set on the material take precedence over the service defaults.
func MergeSCM(defaults ProviderConfig, scm *SCM) *SCM {
	merged := *scm

	merged.APIURL = coalesce(scm.APIURL, defaults.APIURL)
	merged.ProjectName = coalesce(scm.ProjectName, defaults.ProjectName)

	// Credentials are taken as a pair so a material never mixes its own
	// username with the service's password.
	if scm.Username == "" && scm.Password == "" {
		merged.Username = defaults.Username
		merged.Password = defaults.Password
	}

	return &merged
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
