// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bootcontext

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/bureau-foundation/nodestrap/lib/platform"
	"github.com/bureau-foundation/nodestrap/lib/sealed"
)

// DefaultInstallerBase is the download endpoint used to derive
// installer_url when none is configured.
const DefaultInstallerBase = "https://omnitruck.chef.io/stable/chef/download"

// TargetConfig holds the per-target values a context is assembled from.
// For each value with a *File variant, the inline value wins when both
// are set.
type TargetConfig struct {
	ValidationKey     string `yaml:"validation_key"`
	ValidationKeyFile string `yaml:"validation_key_file"`

	EncryptedDataBagSecret string `yaml:"encrypted_data_bag_secret"`
	SecretFile             string `yaml:"secret_file"`
	// SecretAgeIdentityFile, when set, marks SecretFile as
	// age-encrypted and names the identity that decrypts it.
	SecretAgeIdentityFile string `yaml:"secret_age_identity_file"`

	ConfigContent     string `yaml:"config_content"`
	ConfigContentFile string `yaml:"config_content_file"`

	RunList        []string `yaml:"run_list"`
	InstallCommand string   `yaml:"install_command"`
	StartCommand   string   `yaml:"start_command"`

	BootstrapDirectory string `yaml:"bootstrap_directory"`
	LocalDownloadPath  string `yaml:"local_download_path"`

	InstallerURL     string `yaml:"installer_url"`
	InstallerBaseURL string `yaml:"installer_base_url"`

	// Extra adds template fields beyond the required set. Extra values
	// never override a required field.
	Extra map[string]string `yaml:"extra"`
}

// Sources abstracts the file reads Assemble performs. The zero value
// reads from the local filesystem.
type Sources struct {
	ReadFile func(path string) ([]byte, error)
}

func (s Sources) readFile(path string) ([]byte, error) {
	if s.ReadFile != nil {
		return s.ReadFile(path)
	}
	return os.ReadFile(path)
}

// Assemble resolves every required field for one bootstrap attempt.
// Missing or unreadable sources are collected and returned together as
// a *MissingFieldError; other errors (a secret that fails to decrypt)
// are returned immediately.
func Assemble(target TargetConfig, descriptor platform.Descriptor, sources Sources) (*Context, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap context: %w", err)
	}

	fields := make(map[string]string, len(RequiredFields)+len(target.Extra))
	var problems []FieldProblem
	missing := func(field, reason string) {
		problems = append(problems, FieldProblem{Field: field, Reason: reason})
	}

	resolve := func(field, inline, path string) {
		if inline != "" {
			fields[field] = inline
			return
		}
		if path == "" {
			missing(field, "no inline value or file configured")
			return
		}
		data, err := sources.readFile(path)
		if err != nil {
			missing(field, readFailure(path, err))
			return
		}
		if len(data) == 0 {
			missing(field, fmt.Sprintf("file %s is empty", path))
			return
		}
		fields[field] = string(data)
	}

	resolve(FieldValidationKey, target.ValidationKey, target.ValidationKeyFile)
	resolve(FieldConfigContent, target.ConfigContent, target.ConfigContentFile)

	if target.EncryptedDataBagSecret != "" || target.SecretAgeIdentityFile == "" {
		resolve(FieldEncryptedDataBagSecret, target.EncryptedDataBagSecret, target.SecretFile)
	} else {
		secret, problem, err := decryptSecret(target, sources)
		if err != nil {
			return nil, err
		}
		if problem != "" {
			missing(FieldEncryptedDataBagSecret, problem)
		} else {
			fields[FieldEncryptedDataBagSecret] = secret
		}
	}

	if len(target.RunList) == 0 {
		missing(FieldRunList, "run list is empty")
	} else {
		fields[FieldRunList] = strings.Join(target.RunList, ",")
	}

	resolve(FieldInstallCommand, target.InstallCommand, "")
	resolve(FieldStartCommand, target.StartCommand, "")

	if target.BootstrapDirectory == "" {
		missing(FieldBootstrapDirectory, "no bootstrap directory configured")
	} else {
		fields[FieldBootstrapDirectory] = descriptor.NativePath(target.BootstrapDirectory)
	}
	if target.LocalDownloadPath == "" {
		missing(FieldLocalDownloadPath, "no download path configured")
	} else {
		fields[FieldLocalDownloadPath] = descriptor.NativePath(target.LocalDownloadPath)
	}

	installerURL := target.InstallerURL
	if installerURL == "" {
		derived, err := InstallerURL(target.InstallerBaseURL, descriptor)
		if err != nil {
			missing(FieldInstallerURL, err.Error())
		} else {
			installerURL = derived
		}
	}
	if installerURL != "" {
		fields[FieldInstallerURL] = installerURL
	}

	if len(problems) > 0 {
		sort.Slice(problems, func(i, j int) bool { return problems[i].Field < problems[j].Field })
		return nil, &MissingFieldError{Problems: problems}
	}

	for name, value := range target.Extra {
		if _, exists := fields[name]; exists {
			continue
		}
		fields[name] = value
	}

	return &Context{fields: fields}, nil
}

// InstallerURL derives the installer download URL for a platform from
// base (DefaultInstallerBase when empty). The platform and machine are
// passed as the p and m query parameters.
func InstallerURL(base string, descriptor platform.Descriptor) (string, error) {
	if base == "" {
		base = DefaultInstallerBase
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid installer base URL %q: %w", base, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("installer base URL %q must be http or https", base)
	}
	query := parsed.Query()
	query.Set("p", string(descriptor.OS))
	query.Set("m", string(descriptor.Arch))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func decryptSecret(target TargetConfig, sources Sources) (secret, problem string, err error) {
	if target.SecretFile == "" {
		return "", "secret_age_identity_file is set but secret_file is not", nil
	}
	ciphertext, err := sources.readFile(target.SecretFile)
	if err != nil {
		return "", readFailure(target.SecretFile, err), nil
	}
	identityData, err := sources.readFile(target.SecretAgeIdentityFile)
	if err != nil {
		return "", readFailure(target.SecretAgeIdentityFile, err), nil
	}
	identities, err := sealed.ParseIdentities(identityData)
	if err != nil {
		return "", "", fmt.Errorf("bootstrap context: %s: %w", target.SecretAgeIdentityFile, err)
	}
	plaintext, err := sealed.Decrypt(ciphertext, identities)
	if err != nil {
		return "", "", fmt.Errorf("bootstrap context: decrypting %s: %w", target.SecretFile, err)
	}
	if len(plaintext) == 0 {
		return "", fmt.Sprintf("decrypted secret in %s is empty", target.SecretFile), nil
	}
	return string(plaintext), "", nil
}

func readFailure(path string, err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("file %s does not exist", path)
	}
	return fmt.Sprintf("reading %s: %v", path, err)
}
