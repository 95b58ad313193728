package pipeline_test

import (
	"context"
	"testing"

	"github.com/midbel/xsltproof/internal/pipeline"
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

func TestRunFullPipelineValid(t *testing.T) {
	resp := pipeline.Run(context.Background(), pipeline.Request{
		SourceSchema: personSchema,
		TargetSchema: individualSchema,
		Stylesheet:   guardedStylesheet,
	}, nil)

	require.NotNil(t, resp.SubsetCheck)
	assert.True(t, resp.SubsetCheck.Valid)
	require.NotNil(t, resp.SourceGrammar)
	require.NotNil(t, resp.TargetGrammar)
	require.NotNil(t, resp.MTT)
	require.NotNil(t, resp.TypeValidation)
	require.NotNil(t, resp.Preimage)
	require.NotNil(t, resp.Validity)
	assert.True(t, resp.Valid, "unexpected failure: %s", resp.Error)
	assert.Empty(t, resp.Error)
}

const disallowedStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <xsl:call-template name="helper"/>
  </xsl:template>
</xsl:stylesheet>`

func TestRunHaltsOnSubsetViolation(t *testing.T) {
	resp := pipeline.Run(context.Background(), pipeline.Request{
		SourceSchema: personSchema,
		TargetSchema: individualSchema,
		Stylesheet:   disallowedStylesheet,
	}, nil)

	require.NotNil(t, resp.SubsetCheck)
	assert.False(t, resp.SubsetCheck.Valid)
	assert.False(t, resp.Valid)
	assert.Nil(t, resp.SourceGrammar)
	assert.Nil(t, resp.MTT)
}

func TestRunFailsOnMalformedSchema(t *testing.T) {
	resp := pipeline.Run(context.Background(), pipeline.Request{
		SourceSchema: "<not-xml",
		TargetSchema: individualSchema,
		Stylesheet:   guardedStylesheet,
	}, nil)

	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Error)
}

func TestRunRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := pipeline.Run(ctx, pipeline.Request{
		SourceSchema: personSchema,
		TargetSchema: individualSchema,
		Stylesheet:   guardedStylesheet,
	}, nil)

	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Error)
}
