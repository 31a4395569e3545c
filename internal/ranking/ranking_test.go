package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/shift-swap/internal/shift"
)

func post(user, role, date string) shift.Post {
	return shift.Post{ID: user, User: user, Role: role, Date: date, Shift: "09:00-17:00"}
}

func users(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Post.User)
	}
	return out
}

func TestRankNurseScenario(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	pool := []shift.Post{
		post("Dana", "Doctor", "2025-11-09"),
		post("Nick", "Nurse", "2025-11-10"),
	}

	got, err := Rank(target, pool, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []string{"Nick", "Dana"}, users(got))
	assert.Equal(t, "Perfect match! Same role (Nurse) and same date (2025-11-10)!", got[0].Reason)
	assert.Equal(t, "Different role, 1 day apart", got[1].Reason)
	assert.Equal(t, 1, got[1].DayDiff)
	assert.False(t, got[1].SameRole)
}

func TestRankExactDateBeatsRole(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	pool := []shift.Post{
		post("SameRoleNextDay", "Nurse", "2025-11-11"),
		post("OtherRoleSameDay", "Doctor", "2025-11-10"),
	}

	got, err := Rank(target, pool, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"OtherRoleSameDay", "SameRoleNextDay"}, users(got))
	assert.Equal(t, "Same date (2025-11-10) but different role (Doctor vs your Nurse)", got[0].Reason)
	assert.Equal(t, "Same role, 1 day apart", got[1].Reason)
}

func TestRankRoleBeatsProximity(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	pool := []shift.Post{
		post("DoctorClose", "Doctor", "2025-11-11"),
		post("NurseFar", "Nurse", "2025-11-13"),
		post("NurseNear", "Nurse", "2025-11-08"),
	}

	got, err := Rank(target, pool, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"NurseNear", "NurseFar", "DoctorClose"}, users(got))
	assert.Equal(t, "Same role, 2 days apart", got[0].Reason)
	assert.Equal(t, "Same role, 3 days apart", got[1].Reason)
}

func TestRankSameRoleWinsOnEqualDiff(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	pool := []shift.Post{
		post("Doctor", "Doctor", "2025-11-12"),
		post("Nurse", "Nurse", "2025-11-08"),
	}

	got, err := Rank(target, pool, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nurse", "Doctor"}, users(got))
}

func TestRankStableTies(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	pool := []shift.Post{
		post("First", "Nurse", "2025-11-10"),
		post("Second", "Nurse", "2025-11-10"),
		post("Third", "Nurse", "2025-11-10"),
	}

	for i := 0; i < 10; i++ {
		got, err := Rank(target, pool, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"First", "Second", "Third"}, users(got))
	}
}

func TestRankTruncates(t *testing.T) {
	target := Target{Role: "Nurse", Date: "2025-11-10"}
	var pool []shift.Post
	for i := 0; i < 10; i++ {
		pool = append(pool, post(fmt.Sprintf("user-%d", i), "Nurse", "2025-11-10"))
	}

	got, err := Rank(target, pool, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)

	got, err = Rank(target, pool, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRankEdgeCases(t *testing.T) {
	got, err := Rank(Target{Role: "Nurse", Date: "2025-11-10"}, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Rank(Target{Role: "Nurse", Date: "2025-11-10"}, []shift.Post{post("Bad", "Nurse", "soon")}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Rank(Target{Role: "Nurse", Date: "Friday"}, []shift.Post{post("A", "Nurse", "2025-11-10")}, 0)
	assert.ErrorIs(t, err, shift.ErrInvalidDate)
}

func TestRankDoesNotModifyInput(t *testing.T) {
	pool := []shift.Post{
		post("Far", "Nurse", "2025-11-12"),
		post("Exact", "Nurse", "2025-11-10"),
	}

	_, err := Rank(Target{Role: "Nurse", Date: "2025-11-10"}, pool, 0)
	require.NoError(t, err)
	assert.Equal(t, "Far", pool[0].User)
}
