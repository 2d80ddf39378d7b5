package perms

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestDeriveTeacherHoldsFullSet(t *testing.T) {
	settings := ClassSettings{} // everything off

	set := Derive(RoleTeacher, settings, nil)

	if !set.CanSpeak || !set.CanVideo || !set.CanChat || !set.CanScreenShare {
		t.Fatalf("teacher lost media/chat rights: %+v", set)
	}
	if !set.CanControlClass || !set.CanRecord {
		t.Fatalf("teacher lost control rights: %+v", set)
	}
}

func TestDerivePrivilegedIgnoresSettingsAndOverride(t *testing.T) {
	settings := ClassSettings{} // everything off
	override := &Override{
		CanSpeak: boolPtr(false),
		CanChat:  boolPtr(false),
	}

	for _, role := range []Role{RoleAdmin, RoleHOD, RoleDean} {
		set := Derive(role, settings, override)
		if set != allTrue() {
			t.Fatalf("role %s restricted by settings/override: %+v", role, set)
		}
	}
}

func TestDeriveStudentHonorsSettings(t *testing.T) {
	settings := DefaultClassSettings()
	settings.AllowStudentMic = false

	set := Derive(RoleStudent, settings, nil)

	if set.CanSpeak {
		t.Fatal("student may speak although AllowStudentMic is false")
	}
	if !set.CanVideo {
		t.Fatal("student lost camera although AllowStudentCamera is true")
	}
	if !set.CanChat {
		t.Fatal("student lost chat although AllowChat is true")
	}
	if set.CanControlClass || set.CanRecord {
		t.Fatalf("student gained control rights: %+v", set)
	}
}

func TestDeriveOverrideAppliesLast(t *testing.T) {
	settings := DefaultClassSettings()
	settings.AllowStudentMic = false

	set := Derive(RoleStudent, settings, &Override{CanSpeak: boolPtr(true)})
	if !set.CanSpeak {
		t.Fatal("override did not grant mic on top of restrictive settings")
	}

	set = Derive(RoleStudent, DefaultClassSettings(), &Override{CanVideo: boolPtr(false)})
	if set.CanVideo {
		t.Fatal("override did not revoke camera on top of permissive settings")
	}
}

func TestDeriveGuestIsChatOnly(t *testing.T) {
	set := Derive(RoleGuest, DefaultClassSettings(), nil)

	if set.CanSpeak || set.CanVideo || set.CanScreenShare {
		t.Fatalf("guest gained media rights: %+v", set)
	}
	if !set.CanChat {
		t.Fatal("guest lost chat although AllowChat is true")
	}
}

func TestDeriveIsPure(t *testing.T) {
	settings := DefaultClassSettings()
	override := &Override{CanChat: boolPtr(false)}

	first := Derive(RoleStudent, settings, override)
	second := Derive(RoleStudent, settings, override)

	if first != second {
		t.Fatalf("same inputs produced different sets: %+v vs %+v", first, second)
	}
	if settings != DefaultClassSettings() {
		t.Fatal("Derive mutated its settings input")
	}
}

func TestRoleOrderAndParsing(t *testing.T) {
	if !(RoleGuest < RoleStudent && RoleStudent < RoleTeacher && RoleTeacher < RoleAdmin && RoleAdmin < RoleHOD && RoleHOD < RoleDean) {
		t.Fatal("role ordinals are not totally ordered")
	}

	if got := ParseRole("hod"); got != RoleHOD {
		t.Fatalf("ParseRole(hod) = %v", got)
	}
	if got := ParseRole("no-such-role"); got != RoleStudent {
		t.Fatalf("unknown role should default to student, got %v", got)
	}

	if RoleTeacher.IsPrivileged() {
		t.Fatal("teacher must not count as privileged")
	}
	if !RoleTeacher.CanModerate() || !RoleDean.CanModerate() {
		t.Fatal("teacher and dean must moderate")
	}
	if RoleStudent.CanModerate() {
		t.Fatal("student must not moderate")
	}
}

func TestOverrideSetAndIsZero(t *testing.T) {
	var o Override
	if !o.IsZero() {
		t.Fatal("empty override should be zero")
	}

	o.Set("audio", false)
	if o.IsZero() || o.CanSpeak == nil || *o.CanSpeak {
		t.Fatalf("Set(audio, false) not applied: %+v", o)
	}

	o.Set("unknown-permission", true)
	if o.CanVideo != nil || o.CanChat != nil || o.CanScreenShare != nil {
		t.Fatalf("unknown permission name mutated override: %+v", o)
	}
}
