package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValuationRequest is the caller-facing input shape (HTTP body, CLI input
// file). It is validated here and converted to BusinessInputs before it
// reaches the engine.
type ValuationRequest struct {
	SectorCode            string   `json:"sector_code" yaml:"sector_code" validate:"omitempty,max=64"`
	AnnualRevenue         float64  `json:"annual_revenue" yaml:"annual_revenue" validate:"gte=0"`
	Profit                *float64 `json:"profit,omitempty" yaml:"profit,omitempty"`
	ProfitMargin          *float64 `json:"profit_margin,omitempty" yaml:"profit_margin,omitempty" validate:"omitempty,gte=-100,lte=100"`
	YearEstablished       int      `json:"year_established,omitempty" yaml:"year_established,omitempty" validate:"omitempty,gte=1800,lte=2200"`
	EmployeeCount         int      `json:"employee_count,omitempty" yaml:"employee_count,omitempty" validate:"gte=0"`
	GrowthRate            *float64 `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty" validate:"omitempty,gte=-100,lte=1000"`
	CustomerConcentration *float64 `json:"customer_concentration,omitempty" yaml:"customer_concentration,omitempty" validate:"omitempty,gte=0,lte=100"`
	RecurringRevenuePct   *float64 `json:"recurring_revenue_pct,omitempty" yaml:"recurring_revenue_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	KeyAssets             []string `json:"key_assets,omitempty" yaml:"key_assets,omitempty" validate:"omitempty,max=20,dive,required,max=120"`
	ExitReason            string   `json:"exit_reason,omitempty" yaml:"exit_reason,omitempty" validate:"omitempty,max=200"`
}

// ErrNoFinancials is returned when a request carries neither revenue nor profit.
var ErrNoFinancials = errors.New("annual_revenue or profit is required")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// Report JSON field names rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the request shape. Messages use JSON field names.
func (r *ValuationRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if r.AnnualRevenue == 0 && r.Profit == nil {
		return fmt.Errorf("invalid request: %w", ErrNoFinancials)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// ToInputs converts a validated request into engine inputs. asOfYear is the
// year the caller values the business in.
func (r *ValuationRequest) ToInputs(asOfYear int) BusinessInputs {
	var assets []string
	if len(r.KeyAssets) > 0 {
		assets = append(assets, r.KeyAssets...)
	}
	return BusinessInputs{
		SectorCode:            strings.TrimSpace(r.SectorCode),
		AnnualRevenue:         r.AnnualRevenue,
		Profit:                copyFloat(r.Profit),
		ProfitMargin:          copyFloat(r.ProfitMargin),
		YearEstablished:       r.YearEstablished,
		EmployeeCount:         r.EmployeeCount,
		GrowthRate:            copyFloat(r.GrowthRate),
		CustomerConcentration: copyFloat(r.CustomerConcentration),
		RecurringRevenuePct:   copyFloat(r.RecurringRevenuePct),
		KeyAssets:             assets,
		ExitReason:            strings.TrimSpace(r.ExitReason),
		AsOfYear:              asOfYear,
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
