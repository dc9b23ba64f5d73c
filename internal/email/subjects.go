package email

const subjectLeadAlertFmt = "New identified lead from %s (intent %d)"
