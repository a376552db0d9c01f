package schema

// SamplePaper is a short research paper covering every herbs field. It backs the
// offline demo and the tests.
const SamplePaper = `
Title: Therapeutic Potential and Phytochemical Profile of Turmeric (Curcuma longa)
and Ginger (Zingiber officinale) in Managing Inflammation and Oxidative Stress

Authors: Dr. Amelia Harris, Prof. James Mitchell, Dr. Sophia Chen

Year: 2023

Abstract:
This research paper explores the medicinal use of two widely studied herbs: turmeric and ginger.
Both have been used in traditional medicine for thousands of years to treat various ailments.

Scientific Name:
The primary plant investigated is Curcuma longa, commonly known as turmeric. Secondary investigations
involved Zingiber officinale, known as ginger.

Medicinal Use:
Both turmeric and ginger are used to prevent, diagnose, treat, and manage diseases and health conditions.
Traditionally, they have been applied to manage inflammation, arthritis, digestive disorders, and metabolic syndrome.

Biological Activity:
The biological activities of Curcuma longa include anti-inflammatory, antioxidant, and hepatoprotective effects.
Zingiber officinale exhibits anti-nausea, analgesic, and immunomodulatory activities. The active compounds
in turmeric suppress NF-κB signaling pathways, while ginger's gingerols inhibit prostaglandin synthesis.

Dose:
Clinical studies have employed turmeric at doses ranging from 500mg to 1500mg daily, divided into 2-3 doses.
Ginger extract has been effectively administered at 2-4 grams per day in capsule or powder form.

Phytochemicals:
Turmeric contains curcumin, demethoxycurcumin, and bisdemethoxycurcumin as primary constituents.
Ginger is rich in 6-gingerol, 6-shogaol, zingerone, and paradol. Both plants also contain polyphenols and terpenoids.

Plant Part Used:
The rhizome (underground stem) of both Curcuma longa and Zingiber officinale is used for medicinal purposes.
The dried rhizomes are processed into powder, extract, or used fresh in formulations.

Formulation:
Commercial formulations include tablets, capsules, extracts, and standardized powders.
Standardized extracts typically contain 95% curcuminoids in turmeric products and 5% gingerols in ginger products.

Botanic Description:
Curcuma longa is a perennial herbaceous plant standing 60-90 cm in height with broad, elongated leaves.
The rhizome is cylindrical, bright yellow internally, and aromatic. Zingiber officinale is a rhizomatous perennial
with slender stems, lance-shaped leaves, and small yellowish flowers. Both thrive in tropical and subtropical climates.

Toxicity:
Both turmeric and ginger are generally recognized as safe (GRAS) by regulatory agencies.
No significant toxicity has been observed at therapeutic doses. However, excessive doses (>8g/day for turmeric)
may cause gastric irritation in sensitive individuals.

Adverse Reactions:
Mild gastrointestinal effects such as nausea, diarrhea, or stomach upset have been reported in some users.
Turmeric may cause allergic reactions in individuals with turmeric allergy. Ginger can cause mild heartburn
or mouth irritation when consumed in fresh form.

Health Benefits:
Both herbs offer significant health benefits including reduced joint pain, improved digestion, enhanced immune response,
and better management of chronic inflammation. Epidemiological studies suggest reduced risk of cardiovascular disease
and cognitive decline with regular consumption.

Nutritional Benefits:
Turmeric and ginger provide essential minerals including manganese, iron, and potassium. They are also rich in vitamins,
particularly vitamin C and B vitamins. Both are excellent sources of dietary fiber and contain minimal fat and calories.

Reference:
Harris, A., Mitchell, J., & Chen, S. (2023). Therapeutic potential and phytochemical profile of turmeric (Curcuma longa)
and ginger (Zingiber officinale) in managing inflammation and oxidative stress. Journal of Medicinal Plant Research, 15(3),
245-267. https://doi.org/10.1234/jmpr.2023.15.3.245
`
