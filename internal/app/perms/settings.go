package perms

// ClassSettings is the teacher-controlled class policy. It is mutated only by
// teacher action and applied identically by every client that receives the
// settings broadcast.
type ClassSettings struct {
	AllowStudentMic    bool `json:"allowStudentMic"`
	AllowStudentCamera bool `json:"allowStudentCamera"`
	AllowChat          bool `json:"allowChat"`
	EnableHandRaise    bool `json:"enableHandRaise"`
	EnableWhiteboard   bool `json:"enableWhiteboard"`
	AutoRecord         bool `json:"autoRecord"`
	WaitingRoomEnabled bool `json:"waitingRoomEnabled"`
}

// DefaultClassSettings returns the policy a freshly created class starts with:
// students may use mic, camera and chat; hand raise and whiteboard are on;
// recording and the waiting room are opt-in.
func DefaultClassSettings() ClassSettings {
	return ClassSettings{
		AllowStudentMic:    true,
		AllowStudentCamera: true,
		AllowChat:          true,
		EnableHandRaise:    true,
		EnableWhiteboard:   true,
		AutoRecord:         false,
		WaitingRoomEnabled: false,
	}
}

// PermissionSet is the effective capability set of one participant. It is
// derived on demand from (role, settings, override) and never persisted.
type PermissionSet struct {
	CanSpeak        bool `json:"canSpeak"`
	CanVideo        bool `json:"canVideo"`
	CanChat         bool `json:"canChat"`
	CanScreenShare  bool `json:"canScreenShare"`
	CanControlClass bool `json:"canControlClass"`
	CanRecord       bool `json:"canRecord"`
}

// allTrue is the capability set of teachers and privileged roles.
func allTrue() PermissionSet {
	return PermissionSet{
		CanSpeak:        true,
		CanVideo:        true,
		CanChat:         true,
		CanScreenShare:  true,
		CanControlClass: true,
		CanRecord:       true,
	}
}

// Override is a per-participant exception applied by a moderator on top of
// role-derived defaults. Nil fields leave the derived value untouched.
// Overrides never grant class control or recording rights.
type Override struct {
	CanSpeak       *bool `json:"canSpeak,omitempty"`
	CanVideo       *bool `json:"canVideo,omitempty"`
	CanChat        *bool `json:"canChat,omitempty"`
	CanScreenShare *bool `json:"canScreenShare,omitempty"`
}

// IsZero reports whether the override changes nothing.
func (o *Override) IsZero() bool {
	return o == nil ||
		(o.CanSpeak == nil && o.CanVideo == nil && o.CanChat == nil && o.CanScreenShare == nil)
}

// Set assigns the named capability. It is the programmatic counterpart of the
// toggle-student-permissions wire event; unknown names are ignored.
func (o *Override) Set(permissionType string, enabled bool) {
	v := enabled
	switch permissionType {
	case "audio", "canSpeak":
		o.CanSpeak = &v
	case "video", "canVideo":
		o.CanVideo = &v
	case "chat", "canChat":
		o.CanChat = &v
	case "screenShare", "canScreenShare":
		o.CanScreenShare = &v
	}
}
