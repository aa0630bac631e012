// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/fnn"
	"github.com/gomlx/gopjrt/dtypes"
)

// Classifier builds the text-classification graph: a BERT-style transformer
// encoder followed by a pooled classification head emitting one logit per
// label.
type Classifier struct {
	Config    *Config
	NumLabels int
	DType     dtypes.DType
}

// NewClassifier returns a classifier for the given architecture and label
// count. dtype is the compute dtype of the graph, normally Float32, or
// Float16 when fp16 training is requested.
func NewClassifier(cfg *Config, numLabels int, dtype dtypes.DType) *Classifier {
	return &Classifier{Config: cfg, NumLabels: numLabels, DType: dtype}
}

// Graph is the model graph function. inputs are the token ids and the
// attention mask, both shaped [batchSize, seqLen] with int32 values. It
// returns one output node with the classification logits shaped
// [batchSize, NumLabels].
func (c *Classifier) Graph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	tokens, attentionMask := inputs[0], inputs[1]
	g := tokens.Graph()
	batchSize := tokens.Shape().Dimensions[0]
	seqLen := tokens.Shape().Dimensions[1]

	mask := NotEqual(attentionMask, ZerosLike(attentionMask)) // [batch, seqLen] bool
	maskValues := ConvertDType(attentionMask, c.DType)

	// Token embeddings plus learned positional embeddings.
	embedCtx := ctx.In("embeddings")
	embed := layers.Embedding(embedCtx.In("tokens"), tokens, c.DType, c.Config.VocabSize, c.Config.HiddenSize)
	positionVar := embedCtx.In("position").VariableWithShape("embeddings",
		shapes.Make(c.DType, 1, c.Config.MaxPositionEmbeddings, c.Config.HiddenSize))
	positions := Slice(positionVar.ValueGraph(g), AxisRange(), AxisRange(0, seqLen))
	embed = Add(embed, BroadcastToShape(positions, embed.Shape()))
	embed = layers.LayerNormalization(embedCtx, embed, -1).Epsilon(c.Config.LayerNormEps).Done()
	embed = layers.DropoutStatic(embedCtx, embed, c.Config.HiddenDropoutProb)

	// Encoder stack. Padded positions are masked out of the attention and
	// zeroed between layers so they never leak into the pooling.
	activation := activations.FromName(c.Config.HiddenAct)
	zeros := ZerosLike(embed)
	maskAll := BroadcastToShape(InsertAxes(mask, -1), embed.Shape())
	for layerIdx := range c.Config.NumHiddenLayers {
		layerCtx := ctx.Inf("%03d_encoder_layer", layerIdx)

		attnCtx := layerCtx.In("attention")
		attn := layers.MultiHeadAttention(attnCtx, embed, embed, embed,
			c.Config.NumAttentionHeads, c.Config.HeadDim()).
			SetKeyMask(mask).SetQueryMask(mask).
			SetOutputDim(c.Config.HiddenSize).
			Done()
		attn = layers.DropoutStatic(attnCtx, attn, c.Config.AttentionDropoutProb)
		embed = layers.LayerNormalization(attnCtx, Add(embed, attn), -1).
			Epsilon(c.Config.LayerNormEps).Done()

		ffnCtx := layerCtx.In("ffn")
		ffn := fnn.New(ffnCtx, embed, c.Config.HiddenSize).
			NumHiddenLayers(1, c.Config.IntermediateSize).
			Activation(activation).
			Done()
		ffn = layers.DropoutStatic(ffnCtx, ffn, c.Config.HiddenDropoutProb)
		embed = layers.LayerNormalization(ffnCtx, Add(embed, ffn), -1).
			Epsilon(c.Config.LayerNormEps).Done()

		embed = Where(maskAll, embed, zeros)
	}

	// Mean-pool the valid positions and project to one logit per label.
	counts := ReduceSum(maskValues, -1)                   // [batch]
	counts = Max(counts, OnesLike(counts))                // guard fully padded rows
	pooled := ReduceSum(embed, 1)                         // [batch, hidden]
	pooled = Div(pooled, InsertAxes(counts, -1))          // mean over valid tokens
	pooled = Reshape(pooled, batchSize, c.Config.HiddenSize)

	headCtx := ctx.In("classification_head")
	pooled = layers.DropoutStatic(headCtx, pooled, c.Config.HiddenDropoutProb)
	logits := fnn.New(headCtx, pooled, c.NumLabels).Done()
	return []*Node{logits}
}
