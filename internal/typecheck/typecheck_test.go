package typecheck_test

import (
	"testing"

	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/internal/typecheck"
	"github.com/midbel/xsltproof/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="Person">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="Name" type="xs:string"/>
        <xs:element name="Age" type="xs:integer"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

const individualSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="Individual">
    <xs:complexType>
      <xs:attribute name="years">
        <xs:simpleType>
          <xs:restriction base="xs:integer">
            <xs:minInclusive value="0"/>
          </xs:restriction>
        </xs:simpleType>
      </xs:attribute>
    </xs:complexType>
  </xs:element>
</xs:schema>`

const guardedStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <xsl:if test="Age &gt;= 0">
      <Individual years="{Age}"/>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

func buildAll(t *testing.T) (*treegrammar.Grammar, *treegrammar.Grammar, *transducer.MTT) {
	srcDoc, err := xml.ParseString(personSchema)
	require.NoError(t, err)
	src, _, err := treegrammar.Build(srcDoc)
	require.NoError(t, err)

	tgtDoc, err := xml.ParseString(individualSchema)
	require.NoError(t, err)
	tgt, _, err := treegrammar.Build(tgtDoc)
	require.NoError(t, err)

	styDoc, err := xml.ParseString(guardedStylesheet)
	require.NoError(t, err)
	mtt, _, err := transducer.Build(styDoc)
	require.NoError(t, err)

	return src, tgt, mtt
}

func TestValidateRootMappingFound(t *testing.T) {
	src, tgt, mtt := buildAll(t)

	result, trace := typecheck.Validate(src, tgt, mtt)
	assert.True(t, result.Valid, "unexpected errors: %v", trace.Errors())
}

func TestValidateCoverageMatrixIncludesRoot(t *testing.T) {
	src, tgt, mtt := buildAll(t)

	result, _ := typecheck.Validate(src, tgt, mtt)
	var found bool
	for _, c := range result.Coverage {
		if c.Source == "Person" {
			found = true
			assert.Equal(t, "Individual", c.Target)
			assert.True(t, c.Covered)
		}
	}
	assert.True(t, found)
}

const unmappedSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="Ghost">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="Nothing" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestValidateNoRuleForRootErrors(t *testing.T) {
	srcDoc, err := xml.ParseString(unmappedSchema)
	require.NoError(t, err)
	src, _, err := treegrammar.Build(srcDoc)
	require.NoError(t, err)

	tgtDoc, err := xml.ParseString(individualSchema)
	require.NoError(t, err)
	tgt, _, err := treegrammar.Build(tgtDoc)
	require.NoError(t, err)

	styDoc, err := xml.ParseString(guardedStylesheet)
	require.NoError(t, err)
	mtt, _, err := transducer.Build(styDoc)
	require.NoError(t, err)

	result, trace := typecheck.Validate(src, tgt, mtt)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, trace.Errors())
}
