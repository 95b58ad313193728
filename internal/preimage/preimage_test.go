package preimage_test

import (
	"testing"

	"github.com/midbel/xsltproof/internal/preimage"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
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

func TestComputeAcceptsValidOutput(t *testing.T) {
	_, tgt, mtt := buildAll(t)

	result, _ := preimage.Compute(tgt, mtt)
	require.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Rejected)

	p := result.Accepted[0]
	assert.Equal(t, "Person", p.Element)
	assert.Contains(t, p.Constraints, "Age >= 0")
}

const unknownTargetStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <Ghost/>
  </xsl:template>
</xsl:stylesheet>`

func TestComputeRejectsUnknownTargetElement(t *testing.T) {
	_, tgt, _ := buildAll(t)

	styDoc, err := xml.ParseString(unknownTargetStylesheet)
	require.NoError(t, err)
	mtt, _, err := transducer.Build(styDoc)
	require.NoError(t, err)

	result, _ := preimage.Compute(tgt, mtt)
	assert.Empty(t, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Reason, "Ghost")
}

func TestCheckValidityCoversRootPattern(t *testing.T) {
	src, tgt, mtt := buildAll(t)

	result, _ := preimage.Compute(tgt, mtt)
	validity := preimage.CheckValidity(src, result)
	assert.True(t, validity.Valid, "unexpected counterexamples: %v", validity.Counterexamples)
	assert.Equal(t, 100.0, validity.CoveragePercent)
}

const secondElementSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="Catalog">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="Item" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
  <xs:element name="Widget">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="Label" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestCheckValidityReportsCounterexample(t *testing.T) {
	srcDoc, err := xml.ParseString(secondElementSchema)
	require.NoError(t, err)
	src, _, err := treegrammar.Build(srcDoc)
	require.NoError(t, err)

	_, tgt, mtt := buildAll(t)

	result, _ := preimage.Compute(tgt, mtt)
	validity := preimage.CheckValidity(src, result)
	assert.False(t, validity.Valid)
	assert.NotEmpty(t, validity.Counterexamples)
}
