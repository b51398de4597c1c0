package resignation

import (
	"fmt"
	"html"
)

const noticeDateLayout = "Mon Jan 02 2006"

func submittedNotice(hrAddress string, r *Resignation) Notice {
	return Notice{
		Recipient: hrAddress,
		Subject:   "New Resignation Request Submitted",
		Body: fmt.Sprintf(
			"<p>Employee <b>%s</b> has submitted a new resignation request.</p>\n<p>Intended Last Day: %s</p>",
			html.EscapeString(r.EmployeeUsername),
			r.IntendedLastWorkingDay.Format(noticeDateLayout),
		),
	}
}

func approvedNotice(r *Resignation) Notice {
	exitDate := ""
	if r.ExitDate != nil {
		exitDate = r.ExitDate.Format(noticeDateLayout)
	}
	return Notice{
		Recipient: r.EmployeeUsername,
		Subject:   "Your Resignation Has Been Approved",
		Body: fmt.Sprintf(
			"<p>Dear %s,</p>\n<p>Your resignation request has been <b>APPROVED</b>.</p>\n"+
				"<p>Your official <b>Exit Date</b> is: <b>%s</b>.</p>\n"+
				"<p>Please log in to the application to complete your mandatory <b>Exit Interview</b>.</p>",
			html.EscapeString(r.EmployeeUsername),
			exitDate,
		),
	}
}

func rejectedNotice(r *Resignation) Notice {
	return Notice{
		Recipient: r.EmployeeUsername,
		Subject:   "Update on Your Resignation Request",
		Body: fmt.Sprintf(
			"<p>Dear %s,</p>\n<p>Your resignation request has been <b>REJECTED</b> by HR. "+
				"Please contact the HR department for more details.</p>",
			html.EscapeString(r.EmployeeUsername),
		),
	}
}
