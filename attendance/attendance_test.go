package attendance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func joinedOn(year int, month time.Month, day int) *generic.TimePoint {
	tp := date(year, month, day)
	return &tp
}

func consultant(id string, joined *generic.TimePoint) attendance.Employee {
	return attendance.Employee{
		ID:           generic.EntityID(id),
		Name:         "Dr. " + id,
		Department:   "Cardiology",
		Organization: attendance.OrgSuperClinic,
		Category:     attendance.CategoryConsultant,
		JoiningDate:  joined,
	}
}

func staff(id string, org attendance.Organization) attendance.Employee {
	return attendance.Employee{
		ID:           generic.EntityID(id),
		Name:         "Staff " + id,
		Department:   "Nursing",
		Organization: org,
		Category:     attendance.CategoryStaff,
	}
}

// marks builds consecutive marks from a pattern: P present, A absent,
// W weekly off.
func marks(id string, first generic.TimePoint, pattern string) []attendance.RawDayMark {
	out := make([]attendance.RawDayMark, 0, len(pattern))
	for i, c := range pattern {
		var s attendance.RawStatus
		switch c {
		case 'P':
			s = attendance.RawPresent
		case 'A':
			s = attendance.RawAbsent
		case 'W':
			s = attendance.RawWeeklyOff
		default:
			panic("bad pattern")
		}
		out = append(out, attendance.RawDayMark{EmployeeID: generic.EntityID(id), Date: first.AddDays(i), Status: s})
	}
	return out
}

func mustPolicy(t *testing.T, emp attendance.Employee) attendance.Policy {
	t.Helper()
	p, err := attendance.SelectPolicy(emp, attendance.DefaultPolicyOptions())
	require.NoError(t, err)
	return p
}

func categories(days []attendance.ClassifiedDay) []attendance.DayCategory {
	out := make([]attendance.DayCategory, len(days))
	for i, d := range days {
		out[i] = d.Category
	}
	return out
}

func count(days []attendance.ClassifiedDay, c attendance.DayCategory) int {
	n := 0
	for _, d := range days {
		if d.Category == c {
			n++
		}
	}
	return n
}

// =============================================================================
// POLICY SELECTOR
// =============================================================================

func TestSelectPolicy_Variants(t *testing.T) {
	cases := []struct {
		emp     attendance.Employee
		variant attendance.Variant
		hasCL   bool
	}{
		{staff("S1", attendance.OrgHospital), attendance.VariantHospitalStaff, false},
		{staff("S2", attendance.OrgSuperClinic), attendance.VariantClinicStaff, false},
		{consultant("C1", joinedOn(2020, 1, 1)), attendance.VariantClinicConsultant, true},
	}
	for _, tc := range cases {
		p := mustPolicy(t, tc.emp)
		assert.Equal(t, tc.variant, p.Variant)
		assert.Equal(t, tc.hasCL, p.HasCasualLeave())
		assert.Equal(t, attendance.WeeklyOffThreshold, p.WeeklyOffThreshold)
	}
}

func TestSelectPolicy_HospitalConsultantIsUnknown(t *testing.T) {
	emp := consultant("H1", joinedOn(2020, 1, 1))
	emp.Organization = attendance.OrgHospital

	_, err := attendance.SelectPolicy(emp, attendance.DefaultPolicyOptions())

	var orgErr *attendance.UnknownOrganizationError
	require.ErrorAs(t, err, &orgErr)
	assert.Equal(t, generic.EntityID("H1"), orgErr.EmployeeID)
	assert.ErrorIs(t, err, attendance.ErrUnknownOrganization)
	assert.True(t, attendance.IsEmployeeError(err))
}

func TestCLRule_QuotaByJoiningDate(t *testing.T) {
	cases := []struct {
		name   string
		joined *generic.TimePoint
		annual int
		h1, h2 int
	}{
		{"joined before cutoff", joinedOn(2022, 12, 31), 13, 7, 6},
		{"joined on cutoff", joinedOn(2023, 1, 1), 12, 6, 6},
		{"joined after cutoff", joinedOn(2024, 5, 1), 12, 6, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emp := consultant("C", tc.joined)
			annual, err := attendance.ConsultantCLRule.AnnualQuota(emp)
			require.NoError(t, err)
			assert.Equal(t, tc.annual, annual)

			h1, err := attendance.ConsultantCLRule.HalfQuota(emp, generic.H1)
			require.NoError(t, err)
			h2, err := attendance.ConsultantCLRule.HalfQuota(emp, generic.H2)
			require.NoError(t, err)
			assert.Equal(t, tc.h1, h1)
			assert.Equal(t, tc.h2, h2)
		})
	}
}

func TestCLRule_MissingJoiningDate(t *testing.T) {
	_, err := attendance.ConsultantCLRule.AnnualQuota(consultant("C", nil))

	var missing *attendance.MissingJoiningDateError
	assert.ErrorAs(t, err, &missing)
	assert.ErrorIs(t, err, attendance.ErrMissingJoiningDate)
}

func TestSplitHalves_RemainderToFirstHalf(t *testing.T) {
	for annual, want := range map[int][2]int{13: {7, 6}, 12: {6, 6}, 1: {1, 0}, 0: {0, 0}} {
		h1, h2 := attendance.SplitHalves(annual)
		assert.Equal(t, want, [2]int{h1, h2}, "annual %d", annual)
	}
}

// =============================================================================
// WEEKLY-OFF EVALUATOR
// =============================================================================

func TestWeeklyOff_NineDaysIsPaid(t *testing.T) {
	// GIVEN: Exactly 9 present days before the weekly off
	emp := staff("S1", attendance.OrgHospital)
	m := marks("S1", date(2024, 3, 1), "PPPPPPPPPW")

	// WHEN: Classified
	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	// THEN: The threshold is inclusive
	assert.Equal(t, attendance.WeeklyOffPaid, res.Days[9].Category)
	assert.False(t, res.FirstWeeklyOffMayUndercount)
}

func TestWeeklyOff_EightDaysIsUnpaid(t *testing.T) {
	emp := staff("S1", attendance.OrgHospital)
	m := marks("S1", date(2024, 3, 1), "PPPPPPPPW")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	assert.Equal(t, attendance.WeeklyOffUnpaid, res.Days[8].Category)
	assert.True(t, res.FirstWeeklyOffMayUndercount, "first weekly off of the window came out unpaid")
}

func TestWeeklyOff_CountResetsAfterEveryWeeklyOff(t *testing.T) {
	// GIVEN: 12 days, off, 5 days, off
	emp := staff("S1", attendance.OrgSuperClinic)
	m := marks("S1", date(2024, 3, 1), "PPPPPPPPPPPPW"+"PPPPPW")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	// THEN: Surplus days do not carry into the next week
	assert.Equal(t, attendance.WeeklyOffPaid, res.Days[12].Category)
	assert.Equal(t, attendance.WeeklyOffUnpaid, res.Days[18].Category)
	assert.False(t, res.FirstWeeklyOffMayUndercount)
}

func TestWeeklyOff_StaffAbsenceDoesNotCount(t *testing.T) {
	emp := staff("S1", attendance.OrgHospital)
	m := marks("S1", date(2024, 3, 1), "PPPPAPPPPW")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	assert.Equal(t, attendance.Absent, res.Days[4].Category)
	assert.Equal(t, attendance.WeeklyOffUnpaid, res.Days[9].Category)
}

func TestWeeklyOffCounter_Settle(t *testing.T) {
	var c attendance.WeeklyOffCounter
	assert.True(t, c.First())
	for i := 0; i < 9; i++ {
		c = c.Attend()
	}

	cat, next := c.Settle(9)
	assert.Equal(t, attendance.WeeklyOffPaid, cat)
	assert.Zero(t, next.Attended)
	assert.False(t, next.First())
	assert.Equal(t, 9, c.Attended, "Settle does not modify the receiver")
}

// =============================================================================
// CASUAL-LEAVE ALLOCATOR
// =============================================================================

func TestCasualLeave_QuotaExhaustion(t *testing.T) {
	// GIVEN: Pre-2023 consultant (13/year, 7 in H1) with 8 absences in H1
	emp := consultant("C1", joinedOn(2021, 6, 1))
	m := marks("C1", date(2024, 2, 1), "AAAAAAAA")

	// WHEN: Classified
	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	// THEN: 7 CL, then loss of pay
	assert.Equal(t, 7, count(res.Days, attendance.CasualLeave))
	assert.Equal(t, 1, count(res.Days, attendance.LossOfPay))
	assert.Equal(t, attendance.LossOfPay, res.Days[7].Category)

	require.Len(t, res.Balances, 1)
	assert.Equal(t, 7, res.Balances[0].Consumed())
	assert.True(t, res.Balances[0].Exhausted())
}

func TestCasualLeave_NoCarryOverBetweenHalves(t *testing.T) {
	// GIVEN: H1 quota fully spent at the end of June, then absences in July
	emp := consultant("C1", joinedOn(2021, 6, 1))
	m := marks("C1", date(2024, 6, 21), "AAAAAAAAAA"+"AAAAAAA")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	// THEN: June: 7 CL + 3 LOP; July starts a fresh quota of 6
	june, july := res.Days[:10], res.Days[10:]
	assert.Equal(t, 7, count(june, attendance.CasualLeave))
	assert.Equal(t, 3, count(june, attendance.LossOfPay))
	assert.Equal(t, 6, count(july, attendance.CasualLeave))
	assert.Equal(t, 1, count(july, attendance.LossOfPay))

	require.Len(t, res.Balances, 2)
	assert.Equal(t, generic.H1, res.Balances[0].Half)
	assert.Equal(t, generic.H2, res.Balances[1].Half)
}

func TestCasualLeave_FullH1LeavesH2Untouched(t *testing.T) {
	emp := consultant("C1", joinedOn(2021, 6, 1))
	m := marks("C1", date(2024, 6, 24), "AAAAAAA"+"PPPPPPPPPW")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, count(res.Days, attendance.CasualLeave))
	require.Len(t, res.Balances, 1, "H2 is never opened without an H2 absence")

	// July opens H2 with its full 6 days regardless of the spent H1
	july, err := attendance.Classify(emp, mustPolicy(t, emp), marks("C1", date(2024, 7, 4), "AAAAAAA"), res.Balances)
	require.NoError(t, err)
	assert.Equal(t, 6, count(july.Days, attendance.CasualLeave))
	assert.Equal(t, attendance.LossOfPay, july.Days[6].Category)
	require.Len(t, july.Balances, 2)
	assert.Equal(t, 6, july.Balances[1].Quota())
}

func TestCasualLeave_StaffHaveNoQuota(t *testing.T) {
	emp := staff("S1", attendance.OrgSuperClinic)
	res, err := attendance.Classify(emp, mustPolicy(t, emp), marks("S1", date(2024, 1, 1), "AAA"), nil)
	require.NoError(t, err)

	assert.Equal(t, []attendance.DayCategory{attendance.Absent, attendance.Absent, attendance.Absent}, categories(res.Days))
	assert.Empty(t, res.Balances)

	_, err = attendance.NewAllocator(emp, mustPolicy(t, emp), nil)
	assert.Error(t, err)
}

func TestCasualLeave_OpeningBalanceIsRespected(t *testing.T) {
	// GIVEN: 5 CL already spent in H1 by an earlier run
	emp := consultant("C1", joinedOn(2021, 6, 1))
	policy := mustPolicy(t, emp)
	spent := generic.NewBalance(emp.ID, policy.ID(), generic.H1.Period(2024), generic.Days(7)).WithConsumed(generic.Days(5))
	opening := []attendance.CLBalance{{Half: generic.H1, Balance: spent}}

	// WHEN: 3 more absences in March
	res, err := attendance.Classify(emp, policy, marks("C1", date(2024, 3, 1), "AAA"), opening)
	require.NoError(t, err)

	// THEN: Only 2 of them fit
	assert.Equal(t, []attendance.DayCategory{attendance.CasualLeave, attendance.CasualLeave, attendance.LossOfPay}, categories(res.Days))
}

func TestCasualLeave_MissingJoiningDateFailsClassification(t *testing.T) {
	emp := consultant("C1", nil)

	_, err := attendance.Classify(emp, mustPolicy(t, emp), marks("C1", date(2024, 1, 1), "PA"), nil)
	assert.ErrorIs(t, err, attendance.ErrMissingJoiningDate)
}

func TestCasualLeave_CountsAsAttendanceFlag(t *testing.T) {
	emp := consultant("C1", joinedOn(2021, 6, 1))
	m := marks("C1", date(2024, 1, 1), "PPPPPPPAAW")

	on, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.WeeklyOffPaid, on.Days[9].Category)

	policy, err := attendance.SelectPolicy(emp, attendance.PolicyOptions{CLCountsAsAttendance: false})
	require.NoError(t, err)
	off, err := attendance.Classify(emp, policy, m, nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.WeeklyOffUnpaid, off.Days[9].Category)
}

// =============================================================================
// CLASSIFY
// =============================================================================

func TestClassify_EmployeeXJanuary(t *testing.T) {
	// GIVEN: Consultant joined 2022-01-01 (13/year, 7 in H1); 9 present,
	// 1 absent, 1 weekly off in January
	emp := consultant("X", joinedOn(2022, 1, 1))
	m := marks("X", date(2024, 1, 1), "PPPPPPPPPAW")

	// WHEN: Classified
	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	// THEN: Absence is CL and the weekly off is paid
	assert.Equal(t, attendance.CasualLeave, res.Days[9].Category)
	assert.Equal(t, attendance.WeeklyOffPaid, res.Days[10].Category)
	assert.Equal(t, 1, res.Balances[0].Consumed())
	assert.Equal(t, 7, res.Balances[0].Quota())
}

func TestClassify_OneDayPerMarkInOrder(t *testing.T) {
	emp := staff("S1", attendance.OrgHospital)
	m := marks("S1", date(2024, 2, 20), "PAWPPPPPPPPPW")

	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)
	require.NoError(t, err)

	require.Len(t, res.Days, len(m))
	for i, d := range res.Days {
		assert.Equal(t, m[i].Date, d.Date)
		assert.Equal(t, m[i].Status, d.Raw)
	}
	period, ok := res.Period()
	require.True(t, ok)
	assert.Equal(t, "2024-02-20", period.Start.String())
	assert.Equal(t, "2024-03-03", period.End.String())
}

func TestClassify_EmptyMarks(t *testing.T) {
	emp := staff("S1", attendance.OrgHospital)

	res, err := attendance.Classify(emp, mustPolicy(t, emp), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Days)
	_, ok := res.Period()
	assert.False(t, ok)
}

func TestValidateRange(t *testing.T) {
	base := marks("E1", date(2024, 1, 1), "PPP")

	gap := []attendance.RawDayMark{base[0], base[2]}
	dup := []attendance.RawDayMark{base[0], base[0]}
	backwards := []attendance.RawDayMark{base[1], base[0]}
	foreign := append(marks("E1", date(2024, 1, 1), "P"), marks("E2", date(2024, 1, 2), "P")...)

	cases := map[attendance.RangeViolation][]attendance.RawDayMark{
		attendance.ViolationGap:             gap,
		attendance.ViolationDuplicate:       dup,
		attendance.ViolationOutOfOrder:      backwards,
		attendance.ViolationForeignEmployee: foreign,
	}
	for reason, m := range cases {
		err := attendance.ValidateRange("E1", m)
		var rangeErr *attendance.MalformedAttendanceRangeError
		require.ErrorAs(t, err, &rangeErr, reason)
		assert.Equal(t, reason, rangeErr.Reason)
		assert.True(t, errors.Is(err, attendance.ErrMalformedAttendanceRange))
	}

	assert.NoError(t, attendance.ValidateRange("E1", base))
}

func TestClassify_UnknownStatusRejected(t *testing.T) {
	// GIVEN: A mark whose status never went through ParseRawStatus
	emp := consultant("C1", joinedOn(2020, 1, 1))
	m := marks("C1", date(2024, 1, 1), "PAP")
	m[2].Status = ""

	// WHEN: Classified
	res, err := attendance.Classify(emp, mustPolicy(t, emp), m, nil)

	// THEN: The range is rejected instead of the day being read as an absence
	var rangeErr *attendance.MalformedAttendanceRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, attendance.ViolationUnknownStatus, rangeErr.Reason)
	assert.Equal(t, "2024-01-03", rangeErr.Date.String())
	assert.True(t, attendance.IsEmployeeError(err))
	assert.Empty(t, res.Days)
}

// =============================================================================
// RAW STATUS AND CATEGORY INFERENCE
// =============================================================================

func TestParseRawStatus(t *testing.T) {
	cases := []struct {
		code, in, out string
		want          attendance.RawStatus
	}{
		{"P", "", "", attendance.RawPresent},
		{" present ", "", "", attendance.RawPresent},
		{"a", "", "", attendance.RawAbsent},
		{"W/O", "", "", attendance.RawWeeklyOff},
		{"Weekly Off", "", "", attendance.RawWeeklyOff},
		{"", "09:00", "", attendance.RawPresent},
		{"", "", "18:30", attendance.RawPresent},
		{"", "", "", attendance.RawAbsent},
	}
	for _, tc := range cases {
		got, err := attendance.ParseRawStatus(tc.code, tc.in, tc.out)
		require.NoError(t, err, tc.code)
		assert.Equal(t, tc.want, got, "code %q", tc.code)
	}

	_, err := attendance.ParseRawStatus("HD", "", "")
	assert.ErrorIs(t, err, attendance.ErrUnknownStatusCode)
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, attendance.CategoryConsultant, attendance.InferCategory("Dr. Meera Iyer"))
	assert.Equal(t, attendance.CategoryConsultant, attendance.InferCategory("Visiting Consultant - Ortho"))
	assert.Equal(t, attendance.CategoryStaff, attendance.InferCategory("Nurse Andrea"))
	assert.Equal(t, attendance.CategoryStaff, attendance.InferCategory("RMO Sandeep"))
}

func TestDayCategory_Short(t *testing.T) {
	want := []string{"P", "A", "WO", "WO-U", "CL", "LOP"}
	for i, c := range attendance.Categories {
		assert.Equal(t, want[i], c.Short())
	}
}
