package shared

// Support desk permissions.
const (
	PermSupportRead  = "support.read"
	PermSupportReply = "support.reply"
	PermSupportClose = "support.close"

	PermSuperviseReports = "supervise.reports"
	PermSuperviseStaff   = "supervise.staff"
)

// Admin back-office permissions.
const (
	PermAdminBasic        = "admin.basic"
	PermAdminRoles        = "admin.roles"
	PermAdminPlayers      = "admin.players"
	PermAdminEconomy      = "admin.economy"
	PermAdminBan          = "admin.ban"
	PermAdminNews         = "admin.news"
	PermAdminLogs         = "admin.logs"
	PermAdminApplications = "admin.applications"
	PermAdminServer       = "admin.server"

	PermBugsRead   = "bugs.read"
	PermBugsManage = "bugs.manage"

	PermManagementAll = "management.all"
)

// StaffScopes lists every permission the platform knows about, used to seed
// the permission catalogue.
func StaffScopes() []string {
	return []string{
		PermSupportRead,
		PermSupportReply,
		PermSupportClose,
		PermSuperviseReports,
		PermSuperviseStaff,
		PermAdminBasic,
		PermAdminRoles,
		PermAdminPlayers,
		PermAdminEconomy,
		PermAdminBan,
		PermAdminNews,
		PermAdminLogs,
		PermAdminApplications,
		PermAdminServer,
		PermBugsRead,
		PermBugsManage,
		PermManagementAll,
	}
}
