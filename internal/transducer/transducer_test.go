package transducer_test

import (
	"testing"

	"github.com/midbel/xsltproof/internal/transducer"
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

func TestBuildSimpleGuardedTemplate(t *testing.T) {
	doc, err := xml.ParseString(guardedStylesheet)
	require.NoError(t, err)

	mtt, trace, err := transducer.Build(doc)
	require.NoError(t, err)
	assert.False(t, trace.HasErrors())

	require.Len(t, mtt.Rules, 1)
	rule := mtt.Rules[0]
	assert.Equal(t, "q_Person_default", rule.State)
	assert.Equal(t, "Person", rule.Pattern.Element)
	assert.Equal(t, "Age >= 0", rule.GuardText)
	require.NotNil(t, rule.Guard)

	require.Len(t, rule.Output, 1)
	ifNode, ok := rule.Output[0].(transducer.If)
	require.True(t, ok)
	require.Len(t, ifNode.Then, 1)
	lit, ok := ifNode.Then[0].(transducer.LiteralElement)
	require.True(t, ok)
	assert.Equal(t, "Individual", lit.Name)
	require.Len(t, lit.Attrs, 2)
	assert.True(t, lit.Attrs[0].IsTemplate)
	assert.Equal(t, "Name", lit.Attrs[0].ValueExpr)
}

const disjointGuardStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <xsl:if test="Age &gt;= 18">
      <Adult/>
    </xsl:if>
  </xsl:template>
  <xsl:template match="Person">
    <xsl:if test="Age &lt; 18">
      <Minor/>
    </xsl:if>
  </xsl:template>
</xsl:stylesheet>`

func TestBuildDisjointGuardsAccepted(t *testing.T) {
	doc, err := xml.ParseString(disjointGuardStylesheet)
	require.NoError(t, err)

	mtt, trace, err := transducer.Build(doc)
	require.NoError(t, err)
	assert.False(t, trace.HasErrors())
	require.Len(t, mtt.Rules, 2)
}

const ambiguousStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <A/>
  </xsl:template>
  <xsl:template match="Person">
    <B/>
  </xsl:template>
</xsl:stylesheet>`

func TestBuildAmbiguousTemplatesRejected(t *testing.T) {
	doc, err := xml.ParseString(ambiguousStylesheet)
	require.NoError(t, err)

	_, trace, err := transducer.Build(doc)
	require.NoError(t, err)
	assert.True(t, trace.HasErrors())
}

const forEachStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Catalog">
    <Items>
      <xsl:for-each select="Item">
        <xsl:apply-templates select="."/>
      </xsl:for-each>
    </Items>
  </xsl:template>
</xsl:stylesheet>`

func TestBuildForEachAndApplyTemplates(t *testing.T) {
	doc, err := xml.ParseString(forEachStylesheet)
	require.NoError(t, err)

	mtt, _, err := transducer.Build(doc)
	require.NoError(t, err)

	require.Len(t, mtt.Rules, 1)
	lit, ok := mtt.Rules[0].Output[0].(transducer.LiteralElement)
	require.True(t, ok)
	require.Len(t, lit.Children, 1)
	forEach, ok := lit.Children[0].(transducer.ForEach)
	require.True(t, ok)
	assert.Equal(t, "Item", forEach.Select)
	require.Len(t, forEach.Body, 1)
	apply, ok := forEach.Body[0].(transducer.ApplyTemplates)
	require.True(t, ok)
	assert.Equal(t, ".", apply.Select)
}

const chooseStylesheet = `<?xml version="1.0"?>
<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform" version="1.0">
  <xsl:template match="Person">
    <xsl:choose>
      <xsl:when test="Age &gt;= 18">
        <Adult/>
      </xsl:when>
      <xsl:otherwise>
        <Minor/>
      </xsl:otherwise>
    </xsl:choose>
  </xsl:template>
</xsl:stylesheet>`

func TestBuildChooseWhenOtherwise(t *testing.T) {
	doc, err := xml.ParseString(chooseStylesheet)
	require.NoError(t, err)

	mtt, _, err := transducer.Build(doc)
	require.NoError(t, err)

	require.Len(t, mtt.Rules, 1)
	choose, ok := mtt.Rules[0].Output[0].(transducer.Choose)
	require.True(t, ok)
	require.Len(t, choose.Whens, 1)
	assert.Equal(t, "Age >= 18", choose.Whens[0].Test)
	assert.True(t, choose.HasOtherwise)
}
