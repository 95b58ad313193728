package lintsubset_test

import (
	"testing"

	"github.com/midbel/xsltproof/internal/lintsubset"
	"github.com/midbel/xsltproof/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guardedStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <xsl:if test="Age &gt;= 0">
      <Individual fullname="{Name}" years="{Age}"/>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

func TestLintAcceptsGuardedTemplate(t *testing.T) {
	doc, err := xml.ParseString(guardedStylesheet)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.True(t, res.Valid(), "expected valid stylesheet, errors: %v", res.Errors())
	assert.Empty(t, res.Warnings())
}

const disallowedStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:variable name="x" select="1"/>
  <xsl:template match="Person">
    <xsl:copy-of select="."/>
  </xsl:template>
</xsl:stylesheet>`

func TestLintRejectsDisallowedConstructs(t *testing.T) {
	doc, err := xml.ParseString(disallowedStylesheet)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.False(t, res.Valid())
	assert.Len(t, res.Errors(), 2)
}

const missingMatchStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template>
    <xsl:value-of select="."/>
  </xsl:template>
</xsl:stylesheet>`

func TestLintRequiresMatchAttribute(t *testing.T) {
	doc, err := xml.ParseString(missingMatchStylesheet)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.False(t, res.Valid())
}

const multiSegmentAVT = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <Individual label="{Name}-{Age}"/>
  </xsl:template>
</xsl:stylesheet>`

func TestLintRejectsMultiSegmentAttributeValueTemplate(t *testing.T) {
	doc, err := xml.ParseString(multiSegmentAVT)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.False(t, res.Valid())
}

const complexPatternStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="//Person">
    <xsl:value-of select="Name"/>
  </xsl:template>
</xsl:stylesheet>`

func TestLintWarnsOnComplexPattern(t *testing.T) {
	doc, err := xml.ParseString(complexPatternStylesheet)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.True(t, res.Valid())
	assert.NotEmpty(t, res.Warnings())
}

const outOfVocabularyStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:output method="xml"/>
  <xsl:template match="Person">
    <xsl:value-of select="Name"/>
  </xsl:template>
</xsl:stylesheet>`

func TestLintRejectsElementsOutsideAcceptedSubset(t *testing.T) {
	doc, err := xml.ParseString(outOfVocabularyStylesheet)
	require.NoError(t, err)

	res := lintsubset.Lint(doc)
	assert.False(t, res.Valid(), "an XSLT-namespace element outside both the allowed and disallowed sets must reject the stylesheet")
	assert.NotEmpty(t, res.Errors())
}
