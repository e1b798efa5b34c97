package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/assets/loaders"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// DefaultTextureName is loaded into slot 0 when present. Without it slot 0
// holds a 1x1 white texture.
const DefaultTextureName = "plain.png"

const textureFormat = vk.FormatR8g8b8a8Unorm

// AssetSource loads named assets. It is satisfied by assets.AssetManager.
type AssetSource interface {
	Load(assetType metadata.ResourceType, name string, params interface{}) (*metadata.Resource, error)
	Unload(res *metadata.Resource) error
}

type Texture struct {
	Name          string
	Image         *VulkanImage
	DescriptorSet vk.DescriptorSet
}

// TextureRegistry owns every sampled texture, the sampler they share and the
// pool their descriptor sets come from. Slots are never reused.
type TextureRegistry struct {
	source   AssetSource
	textures []*Texture
	byName   map[string]int
	sampler  vk.Sampler
	layout   vk.DescriptorSetLayout
	pool     descriptorSets
}

// samplerAnisotropy caps the requested anisotropy at the device limit.
func samplerAnisotropy(deviceLimit float32) float32 {
	if deviceLimit < VULKAN_MAX_SAMPLER_ANISOTROPY {
		return deviceLimit
	}
	return VULKAN_MAX_SAMPLER_ANISOTROPY
}

func NewTextureRegistry(context *VulkanContext, source AssetSource, layout vk.DescriptorSetLayout, capacity uint32) (*TextureRegistry, error) {
	pool, err := NewDescriptorPool(context, vk.DescriptorTypeCombinedImageSampler, layout, capacity)
	if err != nil {
		return nil, err
	}
	tr := &TextureRegistry{
		source: source,
		byName: make(map[string]int),
		layout: layout,
		pool:   pool,
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  0.0,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           samplerAnisotropy(context.Device.Properties.Limits.MaxSamplerAnisotropy),
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
	}
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler), "vkCreateSampler"); err != nil {
		pool.Destroy(context)
		return nil, err
	}
	tr.sampler = sampler
	return tr, nil
}

// CreateDefaultTexture fills slot 0. It must be the first texture created.
func (tr *TextureRegistry) CreateDefaultTexture(context *VulkanContext) error {
	if len(tr.textures) != 0 {
		return errors.New("default texture must occupy slot 0")
	}
	data, err := tr.loadImage(DefaultTextureName)
	if err != nil {
		if !errors.Is(err, core.ErrAssetNotFound) {
			return err
		}
		core.LogWarn("%s not found, using a white default texture", DefaultTextureName)
		data = loaders.WhiteImage()
	}
	_, err = tr.upload(context, DefaultTextureName, data)
	return err
}

// CreateTexture loads name from the texture assets, uploads it and returns
// its slot. A name already loaded returns the existing slot.
func (tr *TextureRegistry) CreateTexture(context *VulkanContext, name string) (int, error) {
	if id, ok := tr.byName[name]; ok {
		return id, nil
	}
	data, err := tr.loadImage(name)
	if err != nil {
		return 0, err
	}
	return tr.upload(context, name, data)
}

func (tr *TextureRegistry) loadImage(name string) (*metadata.ImageResourceData, error) {
	res, err := tr.source.Load(metadata.ResourceTypeTexture, name, &metadata.ImageResourceParams{})
	if err != nil {
		return nil, err
	}
	defer tr.source.Unload(res)

	data, ok := res.Data.(*metadata.ImageResourceData)
	if !ok {
		err := errors.Newf("texture %s has unexpected resource data %T", name, res.Data)
		core.LogError(err.Error())
		return nil, err
	}
	return data, nil
}

func (tr *TextureRegistry) upload(context *VulkanContext, name string, data *metadata.ImageResourceData) (int, error) {
	// Reserve the descriptor set first so an exhausted pool costs no upload.
	set, err := tr.pool.Allocate(context)
	if err != nil {
		return 0, err
	}

	image, err := uploadImage(context, data)
	if err != nil {
		tr.pool.Free(context, set)
		return 0, err
	}
	writeImageSamplerSet(context, set, image.View, tr.sampler)

	id := len(tr.textures)
	tr.textures = append(tr.textures, &Texture{
		Name:          name,
		Image:         image,
		DescriptorSet: set,
	})
	tr.byName[name] = id
	core.LogDebug("texture %s uploaded to slot %d (%dx%d)", name, id, data.Width, data.Height)
	return id, nil
}

// validateImageData checks that data holds exactly Width x Height RGBA8
// pixels.
func validateImageData(data *metadata.ImageResourceData) error {
	if data.Width == 0 || data.Height == 0 {
		return errors.Newf("texture has empty size %dx%d", data.Width, data.Height)
	}
	if want := data.Size(); uint64(len(data.Pixels)) != want {
		return errors.Newf("texture %dx%d has %d bytes of pixels, want %d", data.Width, data.Height, len(data.Pixels), want)
	}
	return nil
}

// uploadImage copies RGBA8 pixels into a new sampled image, leaving it in
// the shader read layout.
func uploadImage(context *VulkanContext, data *metadata.ImageResourceData) (*VulkanImage, error) {
	if err := validateImageData(data); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	staging, err := NewStagingBuffer(context, data.Pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	image, err := ImageCreate(
		context,
		data.Width,
		data.Height,
		textureFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	if err := image.TransitionLayout(context, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		image.Destroy(context)
		return nil, err
	}
	if err := image.CopyFromBuffer(context, staging.Handle); err != nil {
		image.Destroy(context)
		return nil, err
	}
	if err := image.TransitionLayout(context, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

// DescriptorSet returns the set of slot id. Ids come from CreateTexture, so
// an unknown id is a programming error.
func (tr *TextureRegistry) DescriptorSet(id int) vk.DescriptorSet {
	return tr.textures[id].DescriptorSet
}

func (tr *TextureRegistry) Len() int {
	return len(tr.textures)
}

// Destroy releases every texture, then the pool and the sampler. The set
// layout is owned by the caller.
func (tr *TextureRegistry) Destroy(context *VulkanContext) {
	for i := len(tr.textures) - 1; i >= 0; i-- {
		tr.textures[i].Image.Destroy(context)
	}
	tr.textures = nil
	tr.byName = make(map[string]int)
	if tr.pool != nil {
		tr.pool.Destroy(context)
		tr.pool = nil
	}
	if tr.sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, tr.sampler, context.Allocator)
		tr.sampler = vk.NullSampler
	}
}
