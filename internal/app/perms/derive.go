package perms

// Derive computes the effective PermissionSet for a participant. It is pure
// and deterministic: same inputs, same output, no hidden state.
//
// Privileged roles (admin, hod, dean) are evaluated before settings or
// override are consulted at all, so nothing a teacher toggles can restrict
// them. Teachers likewise hold the full set; class settings constrain only
// students and guests. Overrides apply only to non-privileged, non-teacher
// participants.
func Derive(role Role, settings ClassSettings, override *Override) PermissionSet {
	if role.IsPrivileged() {
		return allTrue()
	}

	if role == RoleTeacher {
		return allTrue()
	}

	set := PermissionSet{
		CanChat: settings.AllowChat,
	}

	switch role {
	case RoleStudent:
		set.CanSpeak = settings.AllowStudentMic
		set.CanVideo = settings.AllowStudentCamera
	case RoleGuest:
		// Guests are observers: chat only, no media unless a moderator
		// grants it through an override.
	}

	if override != nil {
		if override.CanSpeak != nil {
			set.CanSpeak = *override.CanSpeak
		}
		if override.CanVideo != nil {
			set.CanVideo = *override.CanVideo
		}
		if override.CanChat != nil {
			set.CanChat = *override.CanChat
		}
		if override.CanScreenShare != nil {
			set.CanScreenShare = *override.CanScreenShare
		}
	}

	return set
}
