/*
policies.go - Leave policy variants and the policy selector

PURPOSE:
  Every employee is classified under exactly one policy variant, chosen
  once per run from the organization and category. The variant carries
  all constants the classification needs, so no other code branches on
  organization or category.

AVAILABLE VARIANTS:
  HospitalStaff:     weekly-off threshold only, no casual leave quota
  ClinicStaff:       weekly-off threshold only, no casual leave quota
  ClinicConsultant:  weekly-off threshold plus a bi-annual CL quota

  A Hospital consultant has no documented rule set and is rejected with
  UnknownOrganizationError rather than guessed.

CASUAL LEAVE QUOTA:
  Joined before 2023-01-01: 13 days per year
  Joined on/after:          12 days per year
  The year is split into halves; an odd day goes to H1 (13 -> 7 + 6).

EXAMPLE:
  policy, err := attendance.SelectPolicy(emp, attendance.DefaultPolicyOptions())
  if err != nil {
      // UnknownOrganizationError
  }
  h1, err := policy.CL.HalfQuota(emp, generic.H1)

SEE ALSO:
  - weekly_off.go: Uses WeeklyOffThreshold
  - casual_leave.go: Uses CLRule
*/
package attendance

import (
	"github.com/warp/attendance-engine/generic"
)

// WeeklyOffThreshold is the number of attendance days that earn a paid
// weekly off. Reaching it exactly is enough.
const WeeklyOffThreshold = 9

// =============================================================================
// VARIANTS
// =============================================================================

type Variant string

const (
	VariantHospitalStaff    Variant = "hospital_staff"
	VariantClinicStaff      Variant = "clinic_staff"
	VariantClinicConsultant Variant = "clinic_consultant"
)

type variantKey struct {
	Organization Organization
	Category     Category
}

var variants = map[variantKey]Variant{
	{OrgHospital, CategoryStaff}:         VariantHospitalStaff,
	{OrgSuperClinic, CategoryStaff}:      VariantClinicStaff,
	{OrgSuperClinic, CategoryConsultant}: VariantClinicConsultant,
}

// =============================================================================
// CASUAL LEAVE RULE
// =============================================================================

// CLRule derives a consultant's casual leave quota from the joining date.
type CLRule struct {
	Cutoff             generic.TimePoint
	AnnualBeforeCutoff int
	AnnualFromCutoff   int
}

// ConsultantCLRule is the documented consultant rule.
var ConsultantCLRule = CLRule{
	Cutoff:             generic.NewTimePoint(2023, 1, 1),
	AnnualBeforeCutoff: 13,
	AnnualFromCutoff:   12,
}

// AnnualQuota returns the yearly CL days for emp. There is no default
// quota: a missing joining date is an error.
func (r CLRule) AnnualQuota(emp Employee) (int, error) {
	if emp.JoiningDate == nil || emp.JoiningDate.IsZero() {
		return 0, &MissingJoiningDateError{EmployeeID: emp.ID}
	}
	if emp.JoiningDate.Before(r.Cutoff) {
		return r.AnnualBeforeCutoff, nil
	}
	return r.AnnualFromCutoff, nil
}

// HalfQuota returns the CL days for one half of the year.
func (r CLRule) HalfQuota(emp Employee, half generic.HalfYear) (int, error) {
	annual, err := r.AnnualQuota(emp)
	if err != nil {
		return 0, err
	}
	h1, h2 := SplitHalves(annual)
	if half == generic.H1 {
		return h1, nil
	}
	return h2, nil
}

// SplitHalves divides an annual quota; the remainder goes to the first half.
func SplitHalves(annual int) (h1, h2 int) {
	h2 = annual / 2
	return annual - h2, h2
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is the immutable rule set for one employee.
type Policy struct {
	Variant            Variant
	WeeklyOffThreshold int

	// CL is nil for variants without a casual leave quota.
	CL *CLRule

	// CLCountsAsAttendance makes CasualLeave days count toward the
	// weekly-off threshold. Only meaningful when CL is set.
	CLCountsAsAttendance bool
}

func (p Policy) ID() generic.PolicyID { return generic.PolicyID(p.Variant) }

func (p Policy) HasCasualLeave() bool { return p.CL != nil }

// PolicyOptions are the knobs exposed through configuration.
type PolicyOptions struct {
	CLCountsAsAttendance bool
}

func DefaultPolicyOptions() PolicyOptions {
	return PolicyOptions{CLCountsAsAttendance: true}
}

// SelectPolicy picks the variant for emp. It has no side effects.
func SelectPolicy(emp Employee, opts PolicyOptions) (Policy, error) {
	variant, ok := variants[variantKey{emp.Organization, emp.Category}]
	if !ok {
		return Policy{}, &UnknownOrganizationError{
			EmployeeID:   emp.ID,
			Organization: emp.Organization,
			Category:     emp.Category,
		}
	}

	policy := Policy{
		Variant:            variant,
		WeeklyOffThreshold: WeeklyOffThreshold,
	}
	if variant == VariantClinicConsultant {
		rule := ConsultantCLRule
		policy.CL = &rule
		policy.CLCountsAsAttendance = opts.CLCountsAsAttendance
	}
	return policy, nil
}
