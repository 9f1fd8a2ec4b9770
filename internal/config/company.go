package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Company is the issuer profile printed on every invoice.
type Company struct {
	Name    string `mapstructure:"name" json:"name"`
	Address string `mapstructure:"address" json:"address"`
	Email   string `mapstructure:"email" json:"email"`
	Phone   string `mapstructure:"phone" json:"phone"`
	TaxID   string `mapstructure:"taxId" json:"taxId,omitempty"`
}

func DefaultCompany() Company {
	return Company{
		Name:    "InvoiceNexus Inc.",
		Address: "123 Invoice Street, City, Country",
		Email:   "contact@invoicenexus.com",
		Phone:   "+1 (555) 123-4567",
	}
}

// CompanyHolder keeps the latest valid company profile.
type CompanyHolder struct {
	current atomic.Value // holds Company
}

// NewCompanyHolder reads company.yml and watches it for changes. A missing file yields the defaults.
func NewCompanyHolder(cfg Config, log *zap.Logger) (*CompanyHolder, error) {
	v := viper.New()

	if cfg.CompanyConfigPath != "" {
		v.SetConfigFile(cfg.CompanyConfigPath)
	} else {
		v.SetConfigName("company")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/invoicenexus")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INVOICENEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCompany()
	v.SetDefault("company.name", defaults.Name)
	v.SetDefault("company.address", defaults.Address)
	v.SetDefault("company.email", defaults.Email)
	v.SetDefault("company.phone", defaults.Phone)

	holder := &CompanyHolder{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(defaults)
		return holder, nil
	}

	var company Company
	if err := v.UnmarshalKey("company", &company); err != nil {
		return nil, err
	}
	if err := validateCompany(company); err != nil {
		return nil, err
	}
	holder.current.Store(company)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Company
		if err := v.UnmarshalKey("company", &updated); err != nil {
			log.Warn("company profile reload failed", zap.Error(err))
			return
		}
		if err := validateCompany(updated); err != nil {
			log.Warn("invalid company profile ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("company profile reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticCompanyHolder returns a holder pinned to the given profile.
func NewStaticCompanyHolder(company Company) *CompanyHolder {
	holder := &CompanyHolder{}
	holder.current.Store(company)
	return holder
}

func (h *CompanyHolder) Get() Company {
	return h.current.Load().(Company)
}

func validateCompany(c Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("company.name cannot be empty")
	}
	return nil
}
