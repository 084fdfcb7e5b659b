package auth

// Role is the closed set of user roles.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Capability names a guarded operation class.
type Capability string

const (
	CapAppointmentBook    Capability = "appointment:book"
	CapAppointmentManage  Capability = "appointment:manage"
	CapRecordCreate       Capability = "record:create"
	CapRecordRead         Capability = "record:read"
	CapRecordUpdate       Capability = "record:update"
	CapRecordDelete       Capability = "record:delete"
	CapPaymentManage      Capability = "payment:manage"
	CapReportView         Capability = "report:view"
	CapReportUsers        Capability = "report:users"
	CapUserSearch         Capability = "user:search"
	CapAuditRead          Capability = "audit:read"
)

// capabilities is the declarative role → allowed-capability table. Admin is
// not special-cased in the check; it simply holds every capability here.
var capabilities = map[Role]map[Capability]bool{
	RolePatient: {
		CapAppointmentBook: true,
	},
	RoleDoctor: {
		CapAppointmentManage: true,
		CapRecordCreate:      true,
		CapRecordRead:        true,
		CapRecordUpdate:      true,
	},
	RoleStaff: {
		CapAppointmentBook:   true,
		CapAppointmentManage: true,
		CapRecordCreate:      true,
		CapRecordRead:        true,
		CapRecordUpdate:      true,
		CapPaymentManage:     true,
		CapUserSearch:        true,
	},
	RoleManager: {
		CapAppointmentBook:   true,
		CapAppointmentManage: true,
		CapRecordRead:        true,
		CapPaymentManage:     true,
		CapReportView:        true,
		CapUserSearch:        true,
	},
	RoleAdmin: {
		CapAppointmentBook:   true,
		CapAppointmentManage: true,
		CapRecordCreate:      true,
		CapRecordRead:        true,
		CapRecordUpdate:      true,
		CapRecordDelete:      true,
		CapPaymentManage:     true,
		CapReportView:        true,
		CapReportUsers:       true,
		CapUserSearch:        true,
		CapAuditRead:         true,
	},
}

// Can reports whether the role holds the capability.
func Can(r Role, cap Capability) bool {
	return capabilities[r][cap]
}
