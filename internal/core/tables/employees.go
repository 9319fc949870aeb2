package tables

import (
	"encoding/json"
	"time"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// EmployeesKey is the table name for employee records.
const EmployeesKey = "employees"

// Employee is a single staff record. Field order matches the import file.
type Employee struct {
	core.Model `yaml:",inline"`

	PayrollNumber string    `json:"payrollNumber" yaml:"payrollNumber"`
	Forenames     string    `json:"forenames" yaml:"forenames"`
	Surname       string    `json:"surname" yaml:"surname"`
	DateOfBirth   time.Time `json:"dateOfBirth" yaml:"dateOfBirth"`
	Telephone     string    `json:"telephone" yaml:"telephone"`
	Mobile        string    `json:"mobile" yaml:"mobile"`
	Address       string    `json:"address" yaml:"address"`
	Address2      string    `json:"address2" yaml:"address2"`
	Postcode      string    `json:"postcode" yaml:"postcode"`
	EMail         string    `json:"email" yaml:"email"`
	StartDate     time.Time `json:"startDate" yaml:"startDate"`
}

// employeeJSON carries dates as ISO strings on the wire.
type employeeJSON struct {
	ID            int64  `json:"id"`
	Version       int64  `json:"version,omitempty"`
	PayrollNumber string `json:"payrollNumber"`
	Forenames     string `json:"forenames"`
	Surname       string `json:"surname"`
	DateOfBirth   string `json:"dateOfBirth"`
	Telephone     string `json:"telephone"`
	Mobile        string `json:"mobile"`
	Address       string `json:"address"`
	Address2      string `json:"address2"`
	Postcode      string `json:"postcode"`
	EMail         string `json:"email"`
	StartDate     string `json:"startDate"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(core.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return core.ParseDate(s)
}

// MarshalJSON writes dates as YYYY-MM-DD.
func (e *Employee) MarshalJSON() ([]byte, error) {
	return json.Marshal(employeeJSON{
		ID:            e.ID,
		Version:       e.Version,
		PayrollNumber: e.PayrollNumber,
		Forenames:     e.Forenames,
		Surname:       e.Surname,
		DateOfBirth:   formatDate(e.DateOfBirth),
		Telephone:     e.Telephone,
		Mobile:        e.Mobile,
		Address:       e.Address,
		Address2:      e.Address2,
		Postcode:      e.Postcode,
		EMail:         e.EMail,
		StartDate:     formatDate(e.StartDate),
	})
}

// UnmarshalJSON accepts ISO dates, ISO datetimes and DD/M/YYYY.
func (e *Employee) UnmarshalJSON(data []byte) error {
	var raw employeeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dob, err := parseDate(raw.DateOfBirth)
	if err != nil {
		return &core.ValidationError{Field: "dateOfBirth", Value: raw.DateOfBirth, Message: err.Error()}
	}
	start, err := parseDate(raw.StartDate)
	if err != nil {
		return &core.ValidationError{Field: "startDate", Value: raw.StartDate, Message: err.Error()}
	}

	*e = Employee{
		Model:         core.Model{ID: raw.ID, Version: raw.Version},
		PayrollNumber: raw.PayrollNumber,
		Forenames:     raw.Forenames,
		Surname:       raw.Surname,
		DateOfBirth:   dob,
		Telephone:     raw.Telephone,
		Mobile:        raw.Mobile,
		Address:       raw.Address,
		Address2:      raw.Address2,
		Postcode:      raw.Postcode,
		EMail:         raw.EMail,
		StartDate:     start,
	}
	return nil
}

var employees = &core.Schema[*Employee]{
	Info: core.TableInfo{
		Key:       EmployeesKey,
		Label:     "Employees",
		UniqueKey: [][]string{{"payrollNumber"}},
	},
	Fields: []core.Field[*Employee]{
		{Name: "id", Column: "id", Type: core.FieldNumeric, ReadOnly: true,
			Ref: func(e *Employee) any { return &e.ID }},
		{Name: "payrollNumber", Column: "payroll_number", Type: core.FieldText, Required: true,
			Ref: func(e *Employee) any { return &e.PayrollNumber }},
		{Name: "forenames", Column: "forenames", Type: core.FieldText, Required: true,
			Ref: func(e *Employee) any { return &e.Forenames }},
		{Name: "surname", Column: "surname", Type: core.FieldText, Required: true,
			Ref: func(e *Employee) any { return &e.Surname }},
		{Name: "dateOfBirth", Column: "date_of_birth", Type: core.FieldDate,
			Ref: func(e *Employee) any { return &e.DateOfBirth }},
		{Name: "telephone", Column: "telephone", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.Telephone }},
		{Name: "mobile", Column: "mobile", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.Mobile }},
		{Name: "address", Column: "address", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.Address }},
		{Name: "address2", Column: "address_2", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.Address2 }},
		{Name: "postcode", Column: "postcode", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.Postcode }},
		{Name: "email", Column: "email", Type: core.FieldText,
			Ref: func(e *Employee) any { return &e.EMail }},
		{Name: "startDate", Column: "start_date", Type: core.FieldDate,
			Ref: func(e *Employee) any { return &e.StartDate }},
	},
	New:         func() *Employee { return &Employee{} },
	DefaultSort: []core.Sort{{Field: "surname", Dir: "asc"}},
}

func init() {
	core.Register(employees)
}

// Employees returns the employee schema.
func Employees() *core.Schema[*Employee] {
	return employees
}
