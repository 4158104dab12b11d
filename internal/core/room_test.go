package core

import "testing"

func TestDirectoryJoinLeaveRoundTrip(t *testing.T) {
	d := NewDirectory()
	c := NewClient("conn-a", "alice", RoleStudent)

	if !d.Join("class1", c) {
		t.Fatal("first join should report newly added")
	}
	if d.Join("class1", c) {
		t.Fatal("second join should be a no-op")
	}
	if got := d.Size("class1"); got != 1 {
		t.Fatalf("size = %d, want 1", got)
	}

	if !d.Leave("class1", c) {
		t.Fatal("leave should report removal")
	}
	if d.Leave("class1", c) {
		t.Fatal("second leave should be a no-op")
	}

	// The emptied room is garbage collected.
	if d.rooms["class1"] != nil {
		t.Fatal("empty room was retained")
	}
	if got := len(d.Members("class1")); got != 0 {
		t.Fatalf("members of deleted room = %d, want 0", got)
	}
}

func TestDirectoryTeacherSubsetTracksRole(t *testing.T) {
	d := NewDirectory()
	student := NewClient("conn-a", "alice", RoleStudent)
	teacher := NewClient("conn-b", "bob", RoleTeacher)

	d.Join("class1", student)
	d.Join("class1", teacher)

	if got := len(d.Members("class1")); got != 2 {
		t.Fatalf("members = %d, want 2", got)
	}
	teachers := d.Teachers("class1")
	if len(teachers) != 1 || teachers[0] != teacher {
		t.Fatalf("teachers = %+v, want exactly the teacher connection", teachers)
	}

	d.Leave("class1", teacher)
	if got := len(d.Teachers("class1")); got != 0 {
		t.Fatalf("teachers after leave = %d, want 0", got)
	}
}

func TestRegistryDuplicateAddRejected(t *testing.T) {
	r := NewRegistry()
	a := NewClient("conn-a", "alice", RoleStudent)

	if err := r.Add(a); err != nil {
		t.Fatalf("first add: %v", err)
	}
	dup := NewClient("conn-a", "mallory", RoleStudent)
	if err := r.Add(dup); err != ErrAlreadyRegistered {
		t.Fatalf("duplicate add error = %v, want ErrAlreadyRegistered", err)
	}
	if r.Get("conn-a") != a {
		t.Fatal("duplicate add replaced the original entry")
	}
}

func TestRegistryTrackJoinLeaveIdempotent(t *testing.T) {
	r := NewRegistry()
	a := NewClient("conn-a", "alice", RoleStudent)
	_ = r.Add(a)

	r.TrackJoin(a, "class1")
	r.TrackJoin(a, "class1")
	if len(a.Rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(a.Rooms))
	}

	r.TrackLeave(a, "class1")
	r.TrackLeave(a, "class1")
	r.TrackLeave(a, "never-joined")
	if len(a.Rooms) != 0 {
		t.Fatalf("rooms = %d, want 0", len(a.Rooms))
	}

	if r.Remove("conn-a") != a {
		t.Fatal("remove did not return the client")
	}
	if r.Remove("conn-a") != nil {
		t.Fatal("second remove should return nil")
	}
}
