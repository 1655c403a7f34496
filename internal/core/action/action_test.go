package action

import (
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPKs(t *testing.T) {
	contacts := []Contact{
		{PK: 1, Username: "a"},
		{PK: 2, Username: "b"},
		{PK: 3, Username: "c"},
	}
	assert.Equal(t, "1, 2, 3", JoinPKs(contacts))
	assert.Empty(t, JoinPKs(nil))
}

func TestParsePKs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "joined output", input: "1, 2, 3", want: []int64{1, 2, 3}},
		{name: "no spaces", input: "10,20", want: []int64{10, 20}},
		{name: "blank entries skipped", input: " 5 ,, ,6,", want: []int64{5, 6}},
		{name: "empty", input: "", want: nil},
		{name: "not a number", input: "1, bob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePKs(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpretContacts_Populated(t *testing.T) {
	r := Result{
		Kind: KindSuccess,
		Contacts: []Contact{
			{PK: 1, Username: "one", FullName: "One"},
			{PK: 2, Username: "two", FullName: "Two"},
			{PK: 3, Username: "three", FullName: "Three"},
		},
	}

	effects := InterpretContacts(r)
	require.Len(t, effects, 3)

	replace, ok := effects[0].(Replace)
	require.True(t, ok)
	assert.Equal(t, AreaContacts, replace.Area)
	assert.Equal(t, ToneSuccess, replace.Output.Tone)
	assert.Equal(t, r.Contacts, replace.Output.Contacts)

	assert.Equal(t, SetRecipients{Value: "1, 2, 3"}, effects[1])

	report, ok := effects[2].(Report)
	require.True(t, ok)
	assert.False(t, report.IsError)
	assert.Contains(t, report.Message, "3")
}

func TestInterpretContacts_EmptyIsDistinctFromError(t *testing.T) {
	empty := InterpretContacts(Result{Kind: KindSuccess, Contacts: []Contact{}})
	failed := InterpretContacts(Result{Kind: KindError})

	emptyOut := empty[0].(Replace).Output
	failedOut := failed[0].(Replace).Output

	assert.Equal(t, ToneEmpty, emptyOut.Tone)
	assert.Equal(t, MsgNoUsers, emptyOut.Text)
	assert.Equal(t, ToneError, failedOut.Tone)
	assert.Equal(t, MsgFetchFailed, failedOut.Text)
	assert.NotEqual(t, emptyOut.Text, failedOut.Text)

	for _, e := range empty {
		_, isSet := e.(SetRecipients)
		assert.False(t, isSet, "empty result must not touch the recipient field")
	}
}

func TestInterpretContacts_Warning(t *testing.T) {
	msg := "Rate limit hit. Please wait before fetching another list."
	effects := InterpretContacts(Result{Kind: KindWarning, Message: msg})

	require.Len(t, effects, 2)
	assert.Equal(t, Replace{Area: AreaContacts, Output: Output{Tone: ToneWarning, Text: msg}}, effects[0])
	assert.Equal(t, Report{Message: msg}, effects[1], "warning is not an error")
}

func TestInterpretContacts_ErrorDetail(t *testing.T) {
	effects := InterpretContacts(Result{Kind: KindError, Message: "User 'ghost' not found."})
	assert.Equal(t, Report{Message: "User 'ghost' not found.", IsError: true}, effects[1])
}

func TestInterpretSend(t *testing.T) {
	t.Run("processing", func(t *testing.T) {
		msg := "Mass DM task started in the background. Check logs for progress."
		effects := InterpretSend(Result{Kind: KindProcessing, Message: msg})
		assert.Equal(t, []Effect{
			Replace{Area: AreaSend, Output: Output{Tone: ToneInfo, Text: msg}},
			Report{Message: msg},
		}, effects)
	})

	t.Run("success is not processing", func(t *testing.T) {
		effects := InterpretSend(Result{Kind: KindSuccess, Message: "done"})
		report := effects[1].(Report)
		assert.True(t, report.IsError)
		assert.Equal(t, MsgSendFailed+" done", report.Message)
	})

	t.Run("error without detail", func(t *testing.T) {
		effects := InterpretSend(Result{Kind: KindError})
		assert.Equal(t, Report{Message: MsgSendFailed, IsError: true}, effects[1])
	})
}

func TestStarted_ClearsArea(t *testing.T) {
	effects := Started(AreaSend)
	assert.Equal(t, Replace{Area: AreaSend, Output: Output{Tone: ToneInfo}}, effects[0])
	assert.Equal(t, Report{Message: MsgSending}, effects[1])
}

func TestFilterContacts(t *testing.T) {
	contacts := []Contact{
		{PK: 1, Username: "shop_alpha"},
		{PK: 2, Username: "bob"},
		{PK: 3, Username: "shop_beta"},
	}

	got, err := FilterContacts(contacts, "shop_*")
	require.NoError(t, err)
	assert.Equal(t, "1, 3", JoinPKs(got))

	got, err = FilterContacts(contacts, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = FilterContacts(contacts, "[")
	require.Error(t, err)
}

func TestListFilter_Validate(t *testing.T) {
	require.NoError(t, ListFilter{TargetUsername: "nasa", ListType: ListFollowers}.Validate())

	err := ListFilter{ListType: "friends", Match: "["}.Validate()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 3)
}

func TestListType_Toggle(t *testing.T) {
	assert.Equal(t, ListFollowing, ListFollowers.Toggle())
	assert.Equal(t, ListFollowers, ListFollowing.Toggle())
}

func TestSendRequest_Validate(t *testing.T) {
	valid := SendRequest{Recipients: "1, 2", Message: "hi", MinDelay: 5, MaxDelay: 10, MaxRecipients: 20}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mod   func(*SendRequest)
		field string
	}{
		{name: "no recipients", mod: func(r *SendRequest) { r.Recipients = " , " }, field: "recipients"},
		{name: "bad recipient", mod: func(r *SendRequest) { r.Recipients = "1,x" }, field: "recipients"},
		{name: "empty message", mod: func(r *SendRequest) { r.Message = "  " }, field: "message"},
		{name: "inverted delays", mod: func(r *SendRequest) { r.MinDelay = 11 }, field: "delay"},
		{name: "negative delay", mod: func(r *SendRequest) { r.MinDelay = -1 }, field: "delay"},
		{name: "zero max", mod: func(r *SendRequest) { r.MaxRecipients = 0 }, field: "max_recipients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mod(&r)

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, r.Validate(), &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}
