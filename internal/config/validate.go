package config

import (
	"errors"
	"net/url"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	errNotHTTPURL   = validation.NewError("config.url_invalid", "must be an http(s) URL with a host")
	errFileNotFound = validation.NewError("config.file_missing", "must name an existing file")
)

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errNotHTTPURL
	}
	return nil
}

func existingFile(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil || !info.Mode().IsRegular() {
		return errFileNotFound
	}
	return nil
}

// ValidateForArchive checks the settings needed to read an archive.
func (c *Config) ValidateForArchive() error {
	errs := validation.Errors{
		"archive": validation.Validate(c.ArchivePath, validation.Required, validation.By(existingFile)),
	}
	return errs.Filter()
}

// ValidateStore checks the settings needed to talk to the note store.
func (c *Config) ValidateStore() error {
	errs := validation.Errors{
		"url":             validation.Validate(c.NoteStore.URL, validation.Required, validation.By(httpURL)),
		"token":           validation.Validate(c.NoteStore.Token, validation.Required),
		"request_timeout": validation.Validate(c.RequestTimeout, validation.Min(time.Duration(0)).Exclusive()),
	}
	return errs.Filter()
}

// ValidateForImport checks everything a full import needs.
func (c *Config) ValidateForImport() error {
	errs := validation.Errors{
		"insertion-point":  validation.Validate(c.InsertionPoint, validation.Required),
		"progress_timeout": validation.Validate(c.ProgressTimeout, validation.Min(time.Duration(0)).Exclusive()),
	}
	merge(errs, c.ValidateForArchive())
	merge(errs, c.ValidateStore())
	return errs.Filter()
}

func merge(into validation.Errors, err error) {
	var errs validation.Errors
	if errors.As(err, &errs) {
		for k, v := range errs {
			into[k] = v
		}
	}
}
