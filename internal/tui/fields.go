package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/colonyops/dmctl/internal/core/config"
	"github.com/colonyops/dmctl/internal/core/session"
)

type field int

const (
	fieldUsername field = iota
	fieldPassword
	fieldCode
	fieldTarget
	fieldMatch
	fieldRecipients
	fieldMessage
	fieldMinDelay
	fieldMaxDelay
	fieldMaxRecipients
	fieldCount
)

// form is the group of fields submitted together by enter.
type form int

const (
	formCredentials form = iota
	formChallenge
	formList
	formSend
)

var fieldLabels = [fieldCount]string{
	fieldUsername:      "Username",
	fieldPassword:      "Password",
	fieldCode:          "Code",
	fieldTarget:        "Target",
	fieldMatch:         "Match",
	fieldRecipients:    "Recipients",
	fieldMessage:       "Message",
	fieldMinDelay:      "Min delay (s)",
	fieldMaxDelay:      "Max delay (s)",
	fieldMaxRecipients: "Max recipients",
}

func (f field) label() string { return fieldLabels[f] }

func (f field) form() form {
	switch f {
	case fieldUsername, fieldPassword:
		return formCredentials
	case fieldCode:
		return formChallenge
	case fieldTarget, fieldMatch:
		return formList
	default:
		return formSend
	}
}

func (f field) section() session.Section {
	switch f.form() {
	case formCredentials:
		return session.SectionCredentials
	case formChallenge:
		return session.SectionChallenge
	default:
		return session.SectionActions
	}
}

func newInputs(send config.SendConfig) [fieldCount]textinput.Model {
	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		inputs[i] = ti
	}

	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'

	inputs[fieldCode].CharLimit = 16
	inputs[fieldCode].Placeholder = "123456"

	inputs[fieldTarget].Placeholder = "username"
	inputs[fieldMatch].Placeholder = "optional glob, e.g. nasa*"

	inputs[fieldRecipients].CharLimit = 0
	inputs[fieldRecipients].Placeholder = "comma separated pks"
	inputs[fieldMessage].CharLimit = 1000

	inputs[fieldMinDelay].SetValue(strconv.Itoa(send.MinDelay))
	inputs[fieldMaxDelay].SetValue(strconv.Itoa(send.MaxDelay))
	inputs[fieldMaxRecipients].SetValue(strconv.Itoa(send.MaxRecipients))
	for _, f := range []field{fieldMinDelay, fieldMaxDelay, fieldMaxRecipients} {
		inputs[f].CharLimit = 6
	}

	return inputs
}
