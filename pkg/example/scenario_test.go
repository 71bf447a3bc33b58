// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package example_test

import (
	"testing"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/example"
	"github.com/jllopis/exampleop/pkg/operatortest"
	"github.com/jllopis/exampleop/pkg/template/pongo"
)

func newFactory(t *testing.T) *example.Factory {
	t.Helper()
	engine, err := pongo.New()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return example.NewFactory(engine)
}

func TestScenarios(t *testing.T) {
	scenarios := []*operatortest.Scenario{
		operatortest.NewScenario("greet").
			WithConfig(map[string]any{
				"path":    "greeting.txt",
				"message": "Hello ${name}",
				"example": map[string]any{"name": "Digdag"},
			}).
			ExpectNoError().
			ExpectFile("greeting.txt", operatortest.Equals("Hello Digdag")),

		operatortest.NewScenario("message from template file").
			WithFile("templates/body.txt", "{% if loud %}HEY{% else %}hey{% endif %} ${who}").
			WithConfig(map[string]any{
				"path":    "out/body.txt",
				"message": "templates/body.txt",
				"who":     "you",
				"example": map[string]any{"loud": true},
			}).
			ExpectNoError().
			ExpectFile("out/body.txt", operatortest.Equals("HEY you")),

		operatortest.NewScenario("overwrite").
			WithFile("out.txt", "old content that is longer").
			WithConfig(map[string]any{"path": "out.txt", "message": "new"}).
			ExpectNoError().
			ExpectFile("out.txt", operatortest.Equals("new")),

		operatortest.NewScenario("escaped placeholder").
			WithConfig(map[string]any{"path": "out.txt", "message": "$${literal}"}).
			ExpectNoError().
			ExpectFile("out.txt", operatortest.Equals("${literal}")),

		operatortest.NewScenario("missing message").
			WithConfig(map[string]any{"path": "out.txt"}).
			ExpectErrorCode(operrors.CodeConfiguration).
			ExpectNoFile("out.txt"),

		operatortest.NewScenario("escaping path").
			WithConfig(map[string]any{"path": "../out.txt", "message": "x"}).
			ExpectErrorCode(operrors.CodeConfiguration),

		operatortest.NewScenario("broken template").
			WithConfig(map[string]any{"path": "out.txt", "message": "{% if %}"}).
			ExpectErrorCode(operrors.CodeConfiguration).
			ExpectNoFile("out.txt"),
	}

	factory := newFactory(t)
	for _, scenario := range scenarios {
		t.Run(scenario.Name(), func(t *testing.T) {
			result := scenario.Run(t, factory)
			result.Assert(t, scenario)
		})
	}
}

