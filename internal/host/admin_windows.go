//go:build windows

package host

import (
	"github.com/juju/errors"
	"golang.org/x/sys/windows"
)

// RequireAdmin fails unless the process token is a member of the
// Administrators group; the Storage cmdlets refuse changes otherwise.
func RequireAdmin() error {
	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid)
	if err != nil {
		return errors.Annotate(err, "building administrators SID")
	}
	defer windows.FreeSid(sid)

	token := windows.Token(0)
	err = windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token)
	if err != nil {
		return errors.Annotate(err, "opening process token")
	}
	defer token.Close()

	isMember, err := token.IsMember(sid)
	if err != nil {
		return errors.Annotate(err, "checking administrators membership")
	}
	if !isMember {
		return errors.Unauthorizedf("this operation requires administrator privileges")
	}
	return nil
}
